// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devnet

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethersphere/raffle/pkg/transaction"
)

var (
	// ErrOutOfGas is the reason of calls that used more gas than allowed.
	ErrOutOfGas = errors.New("out of gas")
	// ErrNoMethod is returned for input that matches no method of a contract.
	ErrNoMethod = errors.New("function selector was not recognized")
)

// RevertError is returned by calls, gas estimations and contract code when
// execution reverted. It carries the ABI encoded revert data and implements
// rpc.DataError the way node errors do, so transaction.RevertData can
// extract it.
type RevertError struct {
	data   []byte
	reason string
}

// Revert returns an error reverting with the given ABI encoded data, for
// example a custom error selector with its arguments.
func Revert(data []byte) error {
	return &RevertError{data: data}
}

// RevertWithReason returns an error reverting with Error(reason).
func RevertWithReason(reason string) error {
	return &RevertError{
		data:   transaction.PackRevertReason(reason),
		reason: reason,
	}
}

func (e *RevertError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("execution reverted: %s", e.reason)
	}
	return "execution reverted"
}

// ErrorData returns the hex encoded revert data.
func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(e.data)
}

// Data returns the revert data.
func (e *RevertError) Data() []byte {
	return e.data
}

// asRevert normalizes errors returned by contract code.
func asRevert(err error) *RevertError {
	var re *RevertError
	if errors.As(err, &re) {
		return re
	}
	return &RevertError{
		data:   transaction.PackRevertReason(err.Error()),
		reason: err.Error(),
	}
}
