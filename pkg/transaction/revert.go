// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// errorSelector is the selector of the solidity Error(string) revert.
var errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

var stringArguments = abi.Arguments{{Type: mustType("string")}}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// RevertData extracts the revert payload that a node attaches to the error of
// a reverted call or gas estimation. The payload is carried in the data field
// of the json-rpc error.
func RevertData(err error) ([]byte, bool) {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return nil, false
	}
	switch d := de.ErrorData().(type) {
	case string:
		data, err := hexutil.Decode(d)
		if err != nil {
			return nil, false
		}
		return data, true
	case []byte:
		return d, true
	default:
		return nil, false
	}
}

// ErrorSelector returns the four byte selector of a solidity custom error
// with the given signature, for example "Lottery__NotOpen()".
func ErrorSelector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// PackRevertReason encodes a revert reason string the way require(cond, reason)
// does.
func PackRevertReason(reason string) []byte {
	data, err := stringArguments.Pack(reason)
	if err != nil {
		// packing a string cannot fail
		panic(err)
	}
	return append(append([]byte{}, errorSelector...), data...)
}

// UnpackRevertReason decodes revert data produced by Error(string).
func UnpackRevertReason(data []byte) (string, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], errorSelector) {
		return "", fmt.Errorf("not an Error(string) revert: %x", data)
	}
	values, err := stringArguments.Unpack(data[4:])
	if err != nil {
		return "", err
	}
	reason, ok := values[0].(string)
	if !ok {
		return "", errors.New("malformed revert reason")
	}
	return reason, nil
}

// RevertErrors maps revert data to sentinel errors, either by custom error
// selector or by Error(string) reason.
type RevertErrors struct {
	selectors map[string]error
	reasons   map[string]error
}

// NewRevertErrors returns an empty mapping.
func NewRevertErrors() *RevertErrors {
	return &RevertErrors{
		selectors: make(map[string]error),
		reasons:   make(map[string]error),
	}
}

// WithSelector maps the custom error with the given signature to target.
func (r *RevertErrors) WithSelector(signature string, target error) *RevertErrors {
	r.selectors[string(ErrorSelector(signature))] = target
	return r
}

// WithReason maps the Error(string) revert with the given reason to target.
func (r *RevertErrors) WithReason(reason string, target error) *RevertErrors {
	r.reasons[reason] = target
	return r
}

// Parse returns an error matching both the mapped sentinel and err with
// errors.Is. Errors without revert data or with unknown revert data are
// returned unchanged.
func (r *RevertErrors) Parse(err error) error {
	if err == nil {
		return nil
	}
	data, ok := RevertData(err)
	if !ok || len(data) < 4 {
		return err
	}
	if target, ok := r.selectors[string(data[:4])]; ok {
		return &revertError{target: target, err: err}
	}
	reason, rerr := UnpackRevertReason(data)
	if rerr != nil {
		return err
	}
	if target, ok := r.reasons[reason]; ok {
		return &revertError{target: target, err: err}
	}
	return err
}

type revertError struct {
	target error
	err    error
}

func (e *revertError) Error() string {
	return fmt.Sprintf("%v: %v", e.target, e.err)
}

func (e *revertError) Is(target error) bool {
	return errors.Is(e.target, target)
}

func (e *revertError) Unwrap() error {
	return e.err
}
