// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/verify"
)

var request = verify.Request{
	Address:         common.HexToAddress("0xabcd"),
	ContractName:    "contracts/Lottery.sol:Lottery",
	CompilerVersion: "v0.8.7+commit.e28d00a7",
	SourceCode:      `{"language":"Solidity"}`,
	ConstructorArgs: []byte{0x01, 0x02},
}

type explorer struct {
	mu       sync.Mutex
	submit   func(r *http.Request) (status, result string)
	statuses []string
	checks   int
}

func (e *explorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.Form.Get("apikey") != "key" {
		write(w, "0", "Invalid API Key")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch r.Form.Get("action") {
	case "verifysourcecode":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		status, result := e.submit(r)
		write(w, status, result)
	case "checkverifystatus":
		if r.Form.Get("guid") != "guid" {
			write(w, "0", "Unknown UID")
			return
		}
		result := e.statuses[e.checks]
		e.checks++
		status := "0"
		if result == "Pass - Verified" {
			status = "1"
		}
		write(w, status, result)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func write(w http.ResponseWriter, status, result string) {
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"message": "",
		"result":  result,
	})
}

func accept(*http.Request) (string, string) {
	return "1", "guid"
}

func newService(t *testing.T, url string) *verify.Service {
	t.Helper()

	s, err := verify.New(logging.Noop(), verify.Options{
		Enabled:         true,
		APIKey:          "key",
		URL:             url,
		PollingInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDisabled(t *testing.T) {
	s, err := verify.New(logging.Noop(), verify.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Enabled() {
		t.Fatal("expected disabled service")
	}
	if err := s.Verify(context.Background(), request); !errors.Is(err, verify.ErrDisabled) {
		t.Fatalf("got error %v, want %v", err, verify.ErrDisabled)
	}
}

func TestMissingAPIKey(t *testing.T) {
	_, err := verify.New(logging.Noop(), verify.Options{Enabled: true})
	if !errors.Is(err, verify.ErrMissingAPIKey) {
		t.Fatalf("got error %v, want %v", err, verify.ErrMissingAPIKey)
	}
}

func TestVerify(t *testing.T) {
	e := &explorer{
		submit: func(r *http.Request) (string, string) {
			for key, want := range map[string]string{
				"module":                "contract",
				"contractaddress":       request.Address.Hex(),
				"contractname":          request.ContractName,
				"compilerversion":       request.CompilerVersion,
				"sourceCode":            request.SourceCode,
				"codeformat":            "solidity-standard-json-input",
				"constructorArguements": "0102",
			} {
				if got := r.PostForm.Get(key); got != want {
					return "0", "bad " + key + ": " + got
				}
			}
			return "1", "guid"
		},
		statuses: []string{"Pending in queue", "Pending in queue", "Pass - Verified"},
	}
	srv := httptest.NewServer(e)
	defer srv.Close()

	s := newService(t, srv.URL)
	if err := s.Verify(context.Background(), request); err != nil {
		t.Fatal(err)
	}
	e.mu.Lock()
	checks := e.checks
	e.mu.Unlock()
	if checks != 3 {
		t.Fatalf("got %d status checks, want 3", checks)
	}
	if got := s.VerifiedCount(); got != 1 {
		t.Fatalf("got verified count %v, want 1", got)
	}
}

func TestAlreadyVerified(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		srv := httptest.NewServer(&explorer{
			submit: func(*http.Request) (string, string) {
				return "0", "Contract source code already verified"
			},
		})
		defer srv.Close()

		s := newService(t, srv.URL)
		if err := s.Verify(context.Background(), request); err != nil {
			t.Fatal(err)
		}
		if got := s.AlreadyVerifiedCount(); got != 1 {
			t.Fatalf("got already verified count %v, want 1", got)
		}
	})

	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(&explorer{
			submit:   accept,
			statuses: []string{"Already Verified"},
		})
		defer srv.Close()

		s := newService(t, srv.URL)
		if err := s.Verify(context.Background(), request); err != nil {
			t.Fatal(err)
		}
		if got := s.AlreadyVerifiedCount(); got != 1 {
			t.Fatalf("got already verified count %v, want 1", got)
		}
	})
}

func TestVerifyFailed(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		srv := httptest.NewServer(&explorer{
			submit: func(*http.Request) (string, string) {
				return "0", "Invalid constructor arguments"
			},
		})
		defer srv.Close()

		s := newService(t, srv.URL)
		err := s.Verify(context.Background(), request)
		if !errors.Is(err, verify.ErrVerificationFailed) {
			t.Fatalf("got error %v, want %v", err, verify.ErrVerificationFailed)
		}
		if got := s.FailedCount(); got != 1 {
			t.Fatalf("got failed count %v, want 1", got)
		}
	})

	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(&explorer{
			submit:   accept,
			statuses: []string{"Pending in queue", "Fail - Unable to verify"},
		})
		defer srv.Close()

		s := newService(t, srv.URL)
		err := s.Verify(context.Background(), request)
		if !errors.Is(err, verify.ErrVerificationFailed) {
			t.Fatalf("got error %v, want %v", err, verify.ErrVerificationFailed)
		}
	})

	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		s := newService(t, srv.URL)
		if err := s.Verify(context.Background(), request); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestVerifyCanceled(t *testing.T) {
	statuses := make([]string, 1000)
	for i := range statuses {
		statuses[i] = "Pending in queue"
	}
	srv := httptest.NewServer(&explorer{
		submit:   accept,
		statuses: statuses,
	})
	defer srv.Close()

	s := newService(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Verify(ctx, request)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got error %v, want %v", err, context.DeadlineExceeded)
	}
}
