// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package backend

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// PaginationCursor is the opaque navigation token carried in the next and
// previous fields of list responses.
type PaginationCursor struct {
	Page     int
	PageSize int
}

// Encode encodes the cursor to a base64 string format
func (c PaginationCursor) Encode() string {
	encoded := fmt.Sprintf("%d.%d", c.Page, c.PageSize)
	return base64.URLEncoding.EncodeToString([]byte(encoded))
}

// DecodePaginationCursor decodes a base64 cursor string back to PaginationCursor
func DecodePaginationCursor(encoded string) (PaginationCursor, error) {
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return PaginationCursor{}, fmt.Errorf("invalid cursor format: %v", err)
	}

	parts := strings.SplitN(string(decoded), ".", 2)
	if len(parts) != 2 {
		return PaginationCursor{}, fmt.Errorf("invalid cursor format: %s", encoded)
	}

	page, err := strconv.Atoi(parts[0])
	if err != nil || page < 1 {
		return PaginationCursor{}, fmt.Errorf("invalid page in cursor: %s", parts[0])
	}

	pageSize, err := strconv.Atoi(parts[1])
	if err != nil || pageSize < 1 {
		return PaginationCursor{}, fmt.Errorf("invalid page size in cursor: %s", parts[1])
	}

	return PaginationCursor{Page: page, PageSize: pageSize}, nil
}
