package backend

import (
	"encoding/base64"
	"fmt"
	"math"
	"net/http/httptest"
	"testing"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationCursorRoundTrip(t *testing.T) {
	cursor := PaginationCursor{Page: 3, PageSize: 25}

	decoded, err := DecodePaginationCursor(cursor.Encode())
	require.NoError(t, err)
	assert.Equal(t, cursor, decoded)
}

func TestDecodePaginationCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"not-base64!",
		base64.URLEncoding.EncodeToString([]byte("nodot")),
		base64.URLEncoding.EncodeToString([]byte("x.10")),
		base64.URLEncoding.EncodeToString([]byte("1.x")),
		base64.URLEncoding.EncodeToString([]byte("0.10")),
		base64.URLEncoding.EncodeToString([]byte("1.0")),
		base64.URLEncoding.EncodeToString([]byte("-1.10")),
	}
	for _, c := range cases {
		_, err := DecodePaginationCursor(c)
		assert.Error(t, err, c)
	}
}

func TestPaginationCapsCursorPageSize(t *testing.T) {
	token := base64.URLEncoding.EncodeToString([]byte("1.100000"))
	r := httptest.NewRequest("GET", "/db1/product/?cursor="+token, nil)

	cursor, err := pagination(r)
	require.NoError(t, err)
	assert.Equal(t, 100, cursor.PageSize)
}

func TestPaginationRejectsOverflowingPage(t *testing.T) {
	urls := []string{
		fmt.Sprintf("/db1/product/?page=%d&page_size=100", math.MaxInt/100+2),
		"/db1/product/?cursor=" + base64.URLEncoding.EncodeToString(
			[]byte(fmt.Sprintf("%d.100", math.MaxInt/100+2))),
	}
	for _, u := range urls {
		r := httptest.NewRequest("GET", u, nil)
		_, err := pagination(r)
		require.Error(t, err, u)
		assert.Equal(t, 400, core.AsError(err).Status(), u)
	}
}
