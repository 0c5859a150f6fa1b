package payments

import "sync"

// Session holds the activation code the terminal was activated with. The bridge owns a
// single Session and passes it to the Client explicitly.
type Session struct {
	mu             sync.RWMutex
	activationCode string
}

func NewSession(activationCode string) *Session {
	return &Session{activationCode: activationCode}
}

func (s *Session) ActivationCode() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activationCode, s.activationCode != ""
}

func (s *Session) SetActivationCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activationCode = code
}

func (s *Session) Clear() {
	s.SetActivationCode("")
}
