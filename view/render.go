// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package view

import (
	"fmt"
	"io"
	"strings"
)

// maskedValue is shown for any non-empty secret input.
const maskedValue = "********"

// Render writes n as text.  Controls are numbered from 1 in the order
// returned by Controls, so a front end can map a number back to a control.
func Render(w io.Writer, n Node) error {
	var b strings.Builder
	i := 0
	walk(n, func(c Node) {
		switch v := c.(type) {
		case Text:
			fmt.Fprintf(&b, "%s\n", v.Content)
		case Input:
			i++
			value := v.Value
			if v.Secret && value != "" {
				value = maskedValue
			}
			fmt.Fprintf(&b, "  [%d] %s: %s\n", i, v.Label, value)
		case Button:
			i++
			fmt.Fprintf(&b, "  [%d] <%s>\n", i, v.Label)
		}
	})
	_, err := io.WriteString(w, b.String())
	return err
}
