// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package backend

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/access"
	"github.com/dynrest-tech/dynrest/core/logger"
	"github.com/dynrest-tech/dynrest/core/serializer"
)

// listResponse is the envelope for paginated collection results
type listResponse struct {
	Count    int                      `json:"count"`
	Next     *string                  `json:"next"`
	Previous *string                  `json:"previous"`
	Results  []map[string]interface{} `json:"results"`
}

// authenticate checks that the request carries an authenticated identity.
// Without authorization enabled every request passes.
func (b *Backend) authenticate(r *http.Request) error {
	if !b.authorizationEnabled {
		return nil
	}
	if access.IdentityFromContext(r.Context()) == "" {
		return core.Errorf(core.KindUnauthenticated, "authentication credentials were not provided")
	}
	return nil
}

func (b *Backend) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	jsonData, _ := json.MarshalWithOption(body, json.DisableHTMLEscape())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// decodeBody decodes the request body into a generic object. Numbers are kept
// as json.Number so that decimals survive without float rounding.
func decodeBody(r *http.Request) (map[string]interface{}, error) {
	var body map[string]interface{}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return nil, core.Errorf(core.KindValidation, "invalid json: %s", err)
	}
	return body, nil
}

// pathID parses the id path parameter. A malformed id cannot match any
// record, hence the not-found classification.
func pathID(r *http.Request, entityName string) (uuid.UUID, error) {
	params := mux.Vars(r)
	id, err := uuid.Parse(params["id"])
	if err != nil {
		return uuid.UUID{}, core.Errorf(core.KindRecordNotFound, "no %s matches the given id", entityName)
	}
	return id, nil
}

// pagination resolves page and page size from the request, either from an
// opaque cursor token or from explicit query parameters. The same bounds
// apply to both.
func pagination(r *http.Request) (PaginationCursor, error) {
	cursor := PaginationCursor{Page: 1, PageSize: defaultPageSize}
	if token := r.URL.Query().Get("cursor"); token != "" {
		decoded, err := DecodePaginationCursor(token)
		if err != nil {
			return cursor, core.Errorf(core.KindValidation, "%s", err)
		}
		cursor = decoded
	} else {
		fields := map[string][]string{}
		if value := r.URL.Query().Get("page"); value != "" {
			page, err := strconv.Atoi(value)
			if err != nil || page < 1 {
				fields["page"] = []string{"must be a positive integer"}
			} else {
				cursor.Page = page
			}
		}
		if value := r.URL.Query().Get("page_size"); value != "" {
			pageSize, err := strconv.Atoi(value)
			if err != nil || pageSize < 1 {
				fields["page_size"] = []string{"must be a positive integer"}
			} else {
				cursor.PageSize = pageSize
			}
		}
		if len(fields) > 0 {
			return cursor, core.ValidationError(fields)
		}
	}
	if cursor.PageSize > maxPageSize {
		cursor.PageSize = maxPageSize
	}
	// the list offset is (page-1)*pageSize and must not overflow
	if cursor.Page-1 > math.MaxInt/cursor.PageSize {
		return cursor, core.ValidationError(map[string][]string{
			"page": {"page is out of range"},
		})
	}
	return cursor, nil
}

// pageLink renders a cursor as an absolute link on the current route
func pageLink(r *http.Request, cursor PaginationCursor) *string {
	u := url.URL{Path: r.URL.Path}
	query := url.Values{}
	query.Set("cursor", cursor.Encode())
	u.RawQuery = query.Encode()
	link := u.String()
	return &link
}

func (b *Backend) listWithAuth(w http.ResponseWriter, r *http.Request) {
	if err := b.authenticate(r); err != nil {
		core.WriteError(w, r, err)
		return
	}
	rc, err := b.resolveRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	cursor, err := pagination(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	offset := (cursor.Page - 1) * cursor.PageSize
	records, total, err := rc.store.list(r.Context(), rc.db, cursor.PageSize, offset)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	response := listResponse{
		Count:   total,
		Results: make([]map[string]interface{}, 0, len(records)),
	}
	for _, record := range records {
		response.Results = append(response.Results, rc.serializer.Serialize(record))
	}
	if cursor.Page*cursor.PageSize < total {
		response.Next = pageLink(r, PaginationCursor{Page: cursor.Page + 1, PageSize: cursor.PageSize})
	}
	if cursor.Page > 1 {
		response.Previous = pageLink(r, PaginationCursor{Page: cursor.Page - 1, PageSize: cursor.PageSize})
	}
	b.writeJSON(w, http.StatusOK, response)
}

func (b *Backend) createWithAuth(w http.ResponseWriter, r *http.Request) {
	if err := b.authenticate(r); err != nil {
		core.WriteError(w, r, err)
		return
	}
	rc, err := b.resolveRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	record, err := rc.serializer.Validate(r.Context(), body, false, b.references(rc))
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	id := uuid.New()
	record[rc.desc.PrimaryKey()] = id

	if err := rc.store.insert(r.Context(), rc.db, id, record); err != nil {
		core.WriteError(w, r, err)
		return
	}

	b.writeJSON(w, http.StatusCreated, rc.serializer.Serialize(record))
	b.notify(r, rc, core.OperationCreate, record)
}

func (b *Backend) countWithAuth(w http.ResponseWriter, r *http.Request) {
	if err := b.authenticate(r); err != nil {
		core.WriteError(w, r, err)
		return
	}
	rc, err := b.resolveRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	count, err := rc.store.count(r.Context(), rc.db)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	b.writeJSON(w, http.StatusOK, map[string]interface{}{
		"table": rc.desc.Name,
		"count": count,
	})
}

func (b *Backend) readWithAuth(w http.ResponseWriter, r *http.Request) {
	if err := b.authenticate(r); err != nil {
		core.WriteError(w, r, err)
		return
	}
	rc, err := b.resolveRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, rc.desc.Name)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	record, err := rc.store.get(r.Context(), rc.db, id)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	b.writeJSON(w, http.StatusOK, rc.serializer.Serialize(record))
}

func (b *Backend) updateWithAuth(w http.ResponseWriter, r *http.Request) {
	if err := b.authenticate(r); err != nil {
		core.WriteError(w, r, err)
		return
	}
	rc, err := b.resolveRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, rc.desc.Name)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	record, err := rc.serializer.Validate(r.Context(), body, false, b.references(rc))
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	record[rc.desc.PrimaryKey()] = id

	if err := rc.store.update(r.Context(), rc.db, id, record); err != nil {
		core.WriteError(w, r, err)
		return
	}

	b.writeJSON(w, http.StatusOK, rc.serializer.Serialize(record))
	b.notify(r, rc, core.OperationUpdate, record)
}

func (b *Backend) patchWithAuth(w http.ResponseWriter, r *http.Request) {
	if err := b.authenticate(r); err != nil {
		core.WriteError(w, r, err)
		return
	}
	rc, err := b.resolveRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, rc.desc.Name)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	patch, err := rc.serializer.Validate(r.Context(), body, true, b.references(rc))
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	record, err := rc.store.get(r.Context(), rc.db, id)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	for key, value := range patch {
		record[key] = value
	}

	if err := rc.store.update(r.Context(), rc.db, id, record); err != nil {
		core.WriteError(w, r, err)
		return
	}

	b.writeJSON(w, http.StatusOK, rc.serializer.Serialize(record))
	b.notify(r, rc, core.OperationPatch, record)
}

func (b *Backend) deleteWithAuth(w http.ResponseWriter, r *http.Request) {
	if err := b.authenticate(r); err != nil {
		core.WriteError(w, r, err)
		return
	}
	rc, err := b.resolveRequest(r)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, rc.desc.Name)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	record, err := rc.store.delete(r.Context(), rc.db, id)
	if err != nil {
		core.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	b.notify(r, rc, core.OperationDelete, record)
}

// notify publishes a committed write to the notifier. Notification failures
// never fail the request, they are only logged.
func (b *Backend) notify(r *http.Request, rc *requestContext, operation core.Operation, record serializer.Record) {
	if b.notifier == nil {
		return
	}
	payload, _ := json.MarshalWithOption(rc.serializer.Serialize(record), json.DisableHTMLEscape())
	if err := b.notifier.Notify(rc.databaseName, rc.desc.Name, operation, payload); err != nil {
		logger.FromContext(r.Context()).
			WithError(err).
			Errorf("cannot notify %s %s/%s", operation, rc.databaseName, rc.desc.Name)
	}
}
