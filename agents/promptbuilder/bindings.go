/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/xml"
	"fmt"
)

// renderer produces the text substituted for one placeholder. A nil
// renderer marks a placeholder that has not been bound yet.
type renderer func() (string, error)

func verbatim(s string) renderer {
	return func() (string, error) { return s, nil }
}

func marshalXML(data any) renderer {
	return func() (string, error) {
		b, err := xml.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal XML: %w", err)
		}
		return string(b), nil
	}
}
