// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-uuid"
)

// Length is the length of a generated ID without its prefix.
const Length = 32

// New generates an ID with an optional prefix.  IDs are suitable for
// correlating effects in logs and for test session identifiers; they are not
// secrets.
func New(optionalPrefix string) (string, error) {
	const op = "id.New"
	u, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, err)
	}
	id := strings.ReplaceAll(u, "-", "")
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
