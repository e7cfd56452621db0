package state

import "sync/atomic"

type appState struct {
	Token  atomic.Value // string
	UserID atomic.Value // string
}

var s appState

func SetToken(t string) { s.Token.Store(t) }
func GetToken() string {
	if v := s.Token.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func SetUserID(id string) { s.UserID.Store(id) }
func GetUserID() string {
	if v := s.UserID.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
