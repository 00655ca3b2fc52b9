// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "errors"

// Sentinel errors for graph aggregation and building.
var (
	// ErrGraphFrozen indicates a mutation was attempted after Freeze.
	ErrGraphFrozen = errors.New("relationships are frozen")

	// ErrNotFrozen indicates an operation that requires a frozen
	// value, such as serialization, was attempted mid-build.
	ErrNotFrozen = errors.New("relationships not frozen")

	// ErrInvalidEdge indicates a call edge or record with missing
	// identity.
	ErrInvalidEdge = errors.New("invalid graph entry")

	// ErrNoFiles indicates a build was requested over an empty file
	// set.
	ErrNoFiles = errors.New("no source files to process")

	// ErrSchemaVersion indicates a serialized document with an
	// incompatible schema version.
	ErrSchemaVersion = errors.New("unsupported schema version")
)
