/*
Copyright 2026 The MPPDB Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/acl"
	"github.com/mppdb/coordinator/go/vt/jobs"
	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

const (
	statusOK     = "OK"
	statusFailed = "FAILED"
)

// Response is the JSON envelope of every /api reply.
type Response struct {
	Status   string        `json:"status"`
	Msg      string        `json:"msg"`
	JobInfo  *jobs.JobInfo `json:"jobInfo,omitempty"`
	Leader   string        `json:"leader,omitempty"`
	IsLeader *bool         `json:"isLeader,omitempty"`
}

// getLoadInfo serves GET /api/{db}/_load_info?label=. A db query parameter,
// even an empty one, takes precedence over the path. Followers redirect to
// the leader without touching the job store.
func (api *API) getLoadInfo(w http.ResponseWriter, r *http.Request) {
	span, ctx := opentracing.StartSpanFromContext(r.Context(), "API.GetLoadInfo")
	defer span.Finish()

	query := r.URL.Query()
	db := mux.Vars(r)["db"]
	if query.Has("db") {
		db = query.Get("db")
	}
	label := query.Get("label")
	span.SetTag("db", db)
	span.SetTag("label", label)

	req := &jobs.JobInfo{DBName: db, Label: label}
	if err := req.Validate(); err != nil {
		api.fail(w, span, "invalid", err)
		return
	}

	ctx, err := api.authenticate(ctx, r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Basic realm="mppdb"`)
		api.fail(w, span, "unauthenticated", err)
		return
	}
	if err := api.gateway.CheckReadPrivilege(ctx, db); err != nil {
		api.fail(w, span, "denied", err)
		return
	}

	isLeader, leaderAddr, err := api.gateway.IsLeader(ctx)
	if err != nil {
		api.fail(w, span, "unavailable", err)
		return
	}
	if !isLeader {
		api.requests.WithLabelValues("redirect").Inc()
		api.redirects.Inc()
		span.SetTag("redirect", true)
		log.DebugS("redirecting load info request", "db", db, "label", label)
		http.Redirect(w, r, "http://"+leaderAddr+r.URL.RequestURI(), http.StatusTemporaryRedirect)
		return
	}

	info, err := api.gateway.LookupJobInfo(ctx, db, label)
	if err != nil {
		result := "error"
		switch vterrors.Code(err) {
		case codes.NotFound:
			result = "not_found"
		case codes.Unavailable:
			result = "unavailable"
		}
		api.fail(w, span, result, err)
		return
	}
	api.requests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, &Response{Status: statusOK, Msg: "Success", JobInfo: info})
}

// getLeader serves GET /api/_leader.
func (api *API) getLeader(w http.ResponseWriter, r *http.Request) {
	span, ctx := opentracing.StartSpanFromContext(r.Context(), "API.GetLeader")
	defer span.Finish()

	isLeader, leaderAddr, err := api.gateway.IsLeader(ctx)
	if err != nil {
		ext.Error.Set(span, true)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response{Status: statusOK, Msg: "Success", Leader: leaderAddr, IsLeader: &isLeader})
}

func (api *API) authenticate(ctx context.Context, r *http.Request) (context.Context, error) {
	if api.authn == nil {
		return ctx, nil
	}
	actor, err := api.authn.AuthenticateHTTP(r)
	if err != nil {
		return ctx, err
	}
	return acl.NewContext(ctx, actor), nil
}

func (api *API) fail(w http.ResponseWriter, span opentracing.Span, result string, err error) {
	api.requests.WithLabelValues(result).Inc()
	ext.Error.Set(span, true)
	span.LogKV("event", "error", "code", vterrors.Code(err).String())
	writeError(w, err)
}

// writeError replies with the HTTP status for err's code. Server-side
// failures get a fixed message so backend addresses never reach clients.
func writeError(w http.ResponseWriter, err error) {
	status := httpStatus(vterrors.Code(err))
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.WarnS("load info request failed", "code", vterrors.Code(err).String(), "err", err)
		msg = publicMessage(err)
	}
	writeJSON(w, status, &Response{Status: statusFailed, Msg: msg})
}

func publicMessage(err error) string {
	switch vterrors.ErrState(err) {
	case vterrors.NoLeader:
		return "no leader elected"
	case vterrors.MetadataUnreachable:
		return "metadata service unreachable"
	case vterrors.HostResolutionFailed:
		return "host resolution failed"
	}
	switch vterrors.Code(err) {
	case codes.Unavailable:
		return "service unavailable"
	case codes.DeadlineExceeded:
		return "request timed out"
	}
	return "internal error"
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable, codes.Canceled:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("cannot encode response: %v", err)
	}
}
