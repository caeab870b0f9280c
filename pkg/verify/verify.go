// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verify submits contract sources to an Etherscan compatible block
// explorer and waits for the verification result.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/ratelimit"
)

const (
	// DefaultURL is the Etherscan API endpoint.
	DefaultURL = "https://api.etherscan.io/api"
	// DefaultPollingInterval is the time between verification status checks.
	DefaultPollingInterval = 5 * time.Second

	// explorers allow five requests per second for a free api key
	requestRate  = time.Second / 5
	requestBurst = 5

	codeFormat = "solidity-standard-json-input"

	statusOK = "1"
)

var (
	// ErrDisabled is returned by Verify when verification is not enabled.
	ErrDisabled = errors.New("verification disabled")
	// ErrVerificationFailed is returned when the explorer rejects the source.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrMissingAPIKey is returned by New when verification is enabled without a key.
	ErrMissingAPIKey = errors.New("missing explorer api key")
)

// Interface verifies deployed contracts.
type Interface interface {
	Verify(ctx context.Context, r Request) error
}

// Options configure the verification service. Verification is performed only
// when Enabled is set; otherwise Verify returns ErrDisabled.
type Options struct {
	Enabled         bool
	APIKey          string
	URL             string
	PollingInterval time.Duration
	HTTPClient      *http.Client
}

// Request describes a deployed contract to verify.
type Request struct {
	Address common.Address
	// ContractName is the fully qualified name, e.g. contracts/Lottery.sol:Lottery.
	ContractName    string
	CompilerVersion string
	// SourceCode is the solc standard json input.
	SourceCode      string
	ConstructorArgs []byte
}

type Service struct {
	logger          logging.Logger
	enabled         bool
	apiKey          string
	url             string
	host            string
	pollingInterval time.Duration
	client          *http.Client
	limiter         *ratelimit.Limiter
	metrics         metrics
}

// response is the envelope of every explorer api response.
type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func New(logger logging.Logger, o Options) (*Service, error) {
	s := &Service{
		logger:          logger,
		enabled:         o.Enabled,
		apiKey:          o.APIKey,
		url:             o.URL,
		pollingInterval: o.PollingInterval,
		client:          o.HTTPClient,
		limiter:         ratelimit.New(requestRate, requestBurst),
		metrics:         newMetrics(),
	}
	if !s.enabled {
		return s, nil
	}
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if s.url == "" {
		s.url = DefaultURL
	}
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("parse explorer url: %w", err)
	}
	s.host = u.Host
	if s.pollingInterval <= 0 {
		s.pollingInterval = DefaultPollingInterval
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 30 * time.Second}
	}
	return s, nil
}

// Enabled reports whether Verify submits anything.
func (s *Service) Enabled() bool {
	return s.enabled
}

// Verify submits the source of the contract and blocks until the explorer
// reports a result. A contract that is already verified is not an error.
func (s *Service) Verify(ctx context.Context, r Request) error {
	if !s.enabled {
		return ErrDisabled
	}

	guid, err := s.submit(ctx, r)
	if err != nil {
		if errors.Is(err, errAlreadyVerified) {
			s.metrics.AlreadyVerifiedCount.Inc()
			s.logger.Infof("verify: contract %s already verified", r.Address)
			return nil
		}
		s.metrics.FailedCount.Inc()
		return err
	}
	s.metrics.SubmittedCount.Inc()
	s.logger.Debugf("verify: submitted contract %s, guid %s", r.Address, guid)

	err = s.waitVerified(ctx, guid)
	switch {
	case err == nil:
		s.metrics.VerifiedCount.Inc()
		s.logger.Infof("verify: contract %s verified", r.Address)
		return nil
	case errors.Is(err, errAlreadyVerified):
		s.metrics.AlreadyVerifiedCount.Inc()
		s.logger.Infof("verify: contract %s already verified", r.Address)
		return nil
	default:
		s.metrics.FailedCount.Inc()
		return err
	}
}

var errAlreadyVerified = errors.New("already verified")

func (s *Service) submit(ctx context.Context, r Request) (string, error) {
	form := url.Values{}
	form.Set("apikey", s.apiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", r.Address.Hex())
	form.Set("sourceCode", r.SourceCode)
	form.Set("codeformat", codeFormat)
	form.Set("contractname", r.ContractName)
	form.Set("compilerversion", r.CompilerVersion)
	// the misspelling is part of the explorer api
	form.Set("constructorArguements", common.Bytes2Hex(r.ConstructorArgs))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submit source: %w", err)
	}
	if resp.Status != statusOK {
		if alreadyVerified(resp.Result) {
			return "", errAlreadyVerified
		}
		return "", fmt.Errorf("submit source: %s: %w", resp.Result, ErrVerificationFailed)
	}
	return resp.Result, nil
}

func (s *Service) waitVerified(ctx context.Context, guid string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollingInterval):
		}

		q := url.Values{}
		q.Set("apikey", s.apiKey)
		q.Set("module", "contract")
		q.Set("action", "checkverifystatus")
		q.Set("guid", guid)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := s.do(ctx, req)
		if err != nil {
			return fmt.Errorf("check verify status: %w", err)
		}

		switch {
		case resp.Status == statusOK:
			return nil
		case alreadyVerified(resp.Result):
			return errAlreadyVerified
		case strings.HasPrefix(resp.Result, "Pending"):
			s.logger.Tracef("verify: guid %s pending", guid)
			continue
		default:
			return fmt.Errorf("check verify status: %s: %w", resp.Result, ErrVerificationFailed)
		}
	}
}

func (s *Service) do(ctx context.Context, req *http.Request) (*response, error) {
	if err := s.limiter.Wait(ctx, s.host); err != nil {
		return nil, err
	}
	s.metrics.RequestCount.Inc()

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	var r response
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &r, nil
}

func alreadyVerified(result string) bool {
	return strings.Contains(strings.ToLower(result), "already verified")
}
