package server

import (
	"net"
	"net/http"
	"sync"

	"lectern/reader"
)

// readerPref is the per-client reader state kept between page loads.
type readerPref struct {
	Bionic   bool
	FontSize int
}

func defaultPref() readerPref {
	return readerPref{FontSize: reader.DefaultFontSize}
}

type prefStore struct {
	mu   sync.RWMutex
	data map[string]readerPref
}

func newPrefStore() *prefStore {
	return &prefStore{data: make(map[string]readerPref)}
}

func (s *prefStore) Get(key string) readerPref {
	s.mu.RLock()
	pref, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return defaultPref()
	}
	return pref
}

// Update applies fn to the stored preference and returns the result.
func (s *prefStore) Update(key string, fn func(*readerPref)) readerPref {
	s.mu.Lock()
	defer s.mu.Unlock()
	pref, ok := s.data[key]
	if !ok {
		pref = defaultPref()
	}
	fn(&pref)
	s.data[key] = pref
	return pref
}

func deriveClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	return host + "|" + r.UserAgent()
}
