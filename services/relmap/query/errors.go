// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import "errors"

// Sentinel errors for query lookups.
var (
	// ErrUnknownFunction indicates the queried function name matched
	// no declaration and no graph key.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownType indicates the queried type or trait has no
	// inheritance-table entry.
	ErrUnknownType = errors.New("unknown type or trait")

	// ErrNoPath indicates no call chain connects the two functions.
	ErrNoPath = errors.New("no call path")
)
