// SPDX-License-Identifier: MIT

package halo

import "errors"

var (
	// ErrBroken is raised inside collectives once a peer rank has failed.
	ErrBroken = errors.New("halo: collective barrier broken by a failed rank")

	// ErrLengthMismatch indicates a field whose length does not match the layout.
	ErrLengthMismatch = errors.New("halo: field length does not match layout")
)
