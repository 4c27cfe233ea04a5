package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Key layout. All keys are ASCII and sort in the order we iterate:
//
//	conv:<convID>:meta                 conversation metadata
//	conv:<convID>:msg:<seq>            message payload, seq zero-padded
//	conv:<convID>:idx:<msgID>          message ID to seq index
//	conv:<convID>:read:<userID>        per-user read marker
//	ver:<msgID>:<ts>-<seq>             message edit history
//	notif:<userID>:<ts>-<seq>          notification feed
//	user:<userID>                      directory record
const (
	seqPad = 20
	ctrPad = 6
)

func ConvMetaKey(convID string) string {
	return fmt.Sprintf("conv:%s:meta", convID)
}

func MsgKey(convID string, seq uint64) string {
	return fmt.Sprintf("conv:%s:msg:%0*d", convID, seqPad, seq)
}

func MsgPrefix(convID string) string {
	return fmt.Sprintf("conv:%s:msg:", convID)
}

func MsgIdxKey(convID, msgID string) string {
	return fmt.Sprintf("conv:%s:idx:%s", convID, msgID)
}

func ReadKey(convID, userID string) string {
	return fmt.Sprintf("conv:%s:read:%s", convID, userID)
}

func ReadPrefix(convID string) string {
	return fmt.Sprintf("conv:%s:read:", convID)
}

func VersionKey(msgID string, ts int64, ctr uint64) string {
	return fmt.Sprintf("ver:%s:%0*d-%0*d", msgID, seqPad, ts, ctrPad, ctr)
}

func VersionPrefix(msgID string) string {
	return fmt.Sprintf("ver:%s:", msgID)
}

func NotifKey(userID string, ts int64, ctr uint64) string {
	return fmt.Sprintf("notif:%s:%0*d-%0*d", userID, seqPad, ts, ctrPad, ctr)
}

func NotifPrefix(userID string) string {
	return fmt.Sprintf("notif:%s:", userID)
}

func UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

const ConvKeyPrefix = "conv:"

// ParseMsgKey extracts the conversation ID and sequence number from a
// message key. It returns ok=false for keys of any other shape.
func ParseMsgKey(key string) (convID string, seq uint64, ok bool) {
	if !strings.HasPrefix(key, ConvKeyPrefix) {
		return "", 0, false
	}
	rest := key[len(ConvKeyPrefix):]
	i := strings.LastIndex(rest, ":msg:")
	if i < 0 {
		return "", 0, false
	}
	convID = rest[:i]
	n, err := strconv.ParseUint(rest[i+len(":msg:"):], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return convID, n, true
}

// ParseReadKey extracts the conversation and user IDs from a read-marker
// key.
func ParseReadKey(key string) (convID, userID string, ok bool) {
	if !strings.HasPrefix(key, ConvKeyPrefix) {
		return "", "", false
	}
	rest := key[len(ConvKeyPrefix):]
	i := strings.LastIndex(rest, ":read:")
	if i < 0 {
		return "", "", false
	}
	return rest[:i], rest[i+len(":read:"):], true
}
