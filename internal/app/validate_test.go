package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"hiretalk/pkg/config"
)

func effWith(mutate func(*config.Config)) config.EffectiveConfigResult {
	cfg := &config.Config{}
	cfg.Server.DBPath = "/tmp/talk"
	if mutate != nil {
		mutate(cfg)
	}
	return config.EffectiveConfigResult{Config: cfg, DBPath: cfg.Server.DBPath}
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, validateConfig(effWith(nil)))

	assert.Error(t, validateConfig(effWith(func(c *config.Config) {
		c.Server.DBPath = ""
	})), "empty db path must fail")

	assert.Error(t, validateConfig(effWith(func(c *config.Config) {
		c.Server.TLS.CertFile = "/tmp/cert.pem"
	})), "cert without key must fail")

	assert.Error(t, validateConfig(effWith(func(c *config.Config) {
		c.Archive.Enabled = true
		c.Archive.Cron = "every day at 3"
	})), "bad cron must fail")

	assert.Error(t, validateConfig(effWith(func(c *config.Config) {
		c.Security.RateLimit.RPS = -1
	})), "negative rps must fail")
}

func TestValidateConfigTLSFilesChecked(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	assert.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	assert.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	assert.NoError(t, validateConfig(effWith(func(c *config.Config) {
		c.Server.TLS.CertFile = cert
		c.Server.TLS.KeyFile = key
	})))

	assert.Error(t, validateConfig(effWith(func(c *config.Config) {
		c.Server.TLS.CertFile = filepath.Join(dir, "missing.pem")
		c.Server.TLS.KeyFile = key
	})), "missing cert file must fail")
}
