// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

/*
Package client provides easy and fast in-process access to the REST api

Instead of marshalling HTTP, the client talks directly to the mux router. It
is perfectly suited for unit tests. With NewWithURL it can also talk to a
running server over the network.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/dynrest-tech/dynrest/core/access"
)

// Client provides easy access to the REST API
type Client struct {
	router     http.Handler
	httpClient *http.Client
	url        string
	token      string
	identity   string
	ctx        context.Context
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithIdentity() adds an authenticated identity to the request context.
func NewWithRouter(router http.Handler) Client {
	return Client{
		router: router,
	}
}

// NewWithURL creates a client to make REST requests to a running backend
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:        url,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// WithToken returns a new client with a bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithIdentity returns a new client with an authenticated identity
// (this works only directly against the mux router, for a normal client
// use WithToken())
func (c Client) WithIdentity(identity string) Client {
	c.identity = identity
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the client's request context
func (c Client) Context() context.Context {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.identity != "" {
		ctx = access.ContextWithIdentity(ctx, c.identity)
	}
	return ctx
}

func (c Client) roundTrip(method, path string, body interface{}, result interface{}, expect int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.MarshalWithOption(body, json.DisableHTMLEscape())
		if err != nil {
			return http.StatusInternalServerError, err
		}
		reader = bytes.NewReader(data)
	}
	r, _ := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	var err error
	var res *http.Response
	var resBody []byte
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res = rec.Result()
		resBody = rec.Body.Bytes()
	} else {
		if c.token != "" {
			r.Header.Add("Authorization", "Bearer "+c.token)
		}
		res, err = c.httpClient.Do(r)
		if err != nil {
			return http.StatusInternalServerError, err
		}
		defer res.Body.Close()
		resBody, _ = io.ReadAll(res.Body)
	}

	status := res.StatusCode
	if status == http.StatusNoContent {
		return status, nil
	}
	if status != expect {
		return status, fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
			status, expect, strings.TrimSpace(string(resBody)))
	}
	if resBody != nil && result != nil {
		if raw, ok := result.(*[]byte); ok {
			*raw = resBody
		} else {
			err = json.Unmarshal(resBody, result)
		}
	}
	return status, err
}

// RawGet gets the resource from path. Expects status 200.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	return c.roundTrip(http.MethodGet, path, nil, result, http.StatusOK)
}

// RawPost posts a resource to path. Expects status 201.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.roundTrip(http.MethodPost, path, body, result, http.StatusCreated)
}

// RawPostStatusOK posts a request body to path. Expects status 200.
func (c Client) RawPostStatusOK(path string, body interface{}, result interface{}) (int, error) {
	return c.roundTrip(http.MethodPost, path, body, result, http.StatusOK)
}

// RawPut puts a resource to path. Expects status 200.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	return c.roundTrip(http.MethodPut, path, body, result, http.StatusOK)
}

// RawPatch patches a resource at path. Expects status 200.
func (c Client) RawPatch(path string, body interface{}, result interface{}) (int, error) {
	return c.roundTrip(http.MethodPatch, path, body, result, http.StatusOK)
}

// RawDelete deletes the resource at path. Expects status 204.
func (c Client) RawDelete(path string) (int, error) {
	return c.roundTrip(http.MethodDelete, path, nil, nil, http.StatusNoContent)
}
