package mockstore

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Fault makes the next Remaining matching requests fail (or stall).
type Fault struct {
	// PathContains restricts the fault to request paths containing it.
	// Empty matches every path.
	PathContains string `json:"path_contains,omitempty"`

	// Method restricts the fault to one HTTP method. Empty matches all.
	Method string `json:"method,omitempty"`

	// Remaining is how many requests the fault still applies to.
	Remaining int `json:"remaining"`

	// Status is the status code to answer with. Zero lets the request
	// through after Delay.
	Status int `json:"status,omitempty"`

	// Message is sent as the body's "message" field.
	Message string `json:"message,omitempty"`

	// Delay stalls the response, for exercising client timeouts.
	Delay time.Duration `json:"delay,omitempty"`
}

func (f *Fault) matches(r *http.Request) bool {
	if f.Remaining <= 0 {
		return false
	}
	if f.Method != "" && !strings.EqualFold(f.Method, r.Method) {
		return false
	}
	return f.PathContains == "" || strings.Contains(r.URL.Path, f.PathContains)
}

// Inject queues a fault.
func (s *Store) Inject(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &f)
	log.Printf("[ERROR-INJECTION] fault queued: path=%q method=%q status=%d remaining=%d delay=%s",
		f.PathContains, f.Method, f.Status, f.Remaining, f.Delay)
}

// FailNext makes the next n requests whose path contains pathContains
// answer with status.
func (s *Store) FailNext(pathContains string, n, status int, message string) {
	s.Inject(Fault{PathContains: pathContains, Remaining: n, Status: status, Message: message})
}

// ResetFaults drops all queued faults.
func (s *Store) ResetFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// RequestCount returns how many requests with method reached the router at
// a path containing pathContains, faulted ones included.
func (s *Store) RequestCount(method, pathContains string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.requests {
		if r.method == method && strings.Contains(r.path, pathContains) {
			n++
		}
	}
	return n
}

type seenRequest struct {
	method string
	path   string
}

// faultMiddleware records every request and applies queued faults.
func (s *Store) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/admin/") {
			next.ServeHTTP(w, r)
			return
		}
		atomic.AddInt64(&s.requestTotal, 1)

		s.mu.Lock()
		s.requests = append(s.requests, seenRequest{method: r.Method, path: r.URL.Path})
		var fault Fault
		applied := false
		for _, f := range s.faults {
			if f.matches(r) {
				f.Remaining--
				fault = *f
				applied = true
				break
			}
		}
		s.mu.Unlock()

		if !applied {
			next.ServeHTTP(w, r)
			return
		}

		if fault.Delay > 0 {
			select {
			case <-time.After(fault.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if fault.Status == 0 {
			next.ServeHTTP(w, r)
			return
		}

		msg := fault.Message
		if msg == "" {
			msg = fmt.Sprintf("injected %d", fault.Status)
		}
		writeJSON(w, fault.Status, map[string]interface{}{
			"success": false,
			"message": msg,
		})
	})
}

// adminInjectFault handles POST /admin/inject-error
func (s *Store) adminInjectFault(w http.ResponseWriter, r *http.Request) {
	var f Fault
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Invalid request body"})
		return
	}
	if f.Remaining <= 0 {
		f.Remaining = 1
	}
	s.Inject(f)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "fault": f})
}

// adminReset handles POST /admin/reset
func (s *Store) adminReset(w http.ResponseWriter, _ *http.Request) {
	s.ResetFaults()
	log.Println("[ERROR-INJECTION] Reset to normal mode")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Error injection reset"})
}

// adminStatus handles GET /admin/status
func (s *Store) adminStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	pending := make([]Fault, 0, len(s.faults))
	for _, f := range s.faults {
		if f.Remaining > 0 {
			pending = append(pending, *f)
		}
	}
	shape := s.cartShape
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"faults":        pending,
		"cart_shape":    shape,
		"request_count": atomic.LoadInt64(&s.requestTotal),
	})
}
