package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/morezero/gate-registration/pkg/gate"
)

const (
	apiLogPrefix    = "server:api"
	maxJSONBodySize = 1 << 20
	multipartMemory = 8 << 20
)

// api adapts gate.Service to HTTP.
type api struct {
	svc            *gate.Service
	requestTimeout time.Duration
	maxUploadBytes int64
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug(fmt.Sprintf("%s - encode response: %v", apiLogPrefix, err))
	}
}

// errorBody is the JSON body of every failed API call.
type errorBody struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// writeError maps err to a status; anything that is not a GateError is a 500.
func writeError(w http.ResponseWriter, err error) {
	var gateErr *gate.GateError
	if !errors.As(err, &gateErr) {
		slog.Error(fmt.Sprintf("%s - unexpected error: %v", apiLogPrefix, err))
		gateErr = gate.NewGateError(gate.CodeInternal, "internal server error")
	}
	writeJSON(w, gateErr.HTTPStatus(), errorBody{Message: gateErr.Message, Code: gateErr.Code, Details: gateErr.Details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return gate.NewGateError(gate.CodeInvalidArgument, "invalid JSON body")
	}
	return nil
}

// ctx bounds every API call by the request timeout.
func (a *api) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), a.requestTimeout)
}

// respond writes result with status, or the error.
func respond(w http.ResponseWriter, status int, result interface{}, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, result)
}

// --- auth ---

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var in gate.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.Login(ctx, &in)
	respond(w, http.StatusOK, out, err)
}

// --- admin: users ---

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.ListUsers(ctx)
	respond(w, http.StatusOK, out, err)
}

func (a *api) createUser(w http.ResponseWriter, r *http.Request) {
	var in gate.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.CreateUser(ctx, &in)
	respond(w, http.StatusCreated, out, err)
}

func (a *api) updateUserRole(w http.ResponseWriter, r *http.Request) {
	var in gate.UpdateUserRoleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.UpdateUserRole(ctx, r.PathValue("id"), &in)
	respond(w, http.StatusOK, out, err)
}

func (a *api) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in gate.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.ResetPassword(ctx, r.PathValue("id"), &in)
	respond(w, http.StatusOK, out, err)
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.DeleteUser(ctx, r.PathValue("id"))
	respond(w, http.StatusOK, out, err)
}

// --- admin: reference data ---

func (a *api) listEmployees(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.ListEmployees(ctx)
	respond(w, http.StatusOK, out, err)
}

func (a *api) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in gate.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.CreateEmployee(ctx, &in)
	respond(w, http.StatusCreated, out, err)
}

func (a *api) updateEmployee(w http.ResponseWriter, r *http.Request) {
	var in gate.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.UpdateEmployee(ctx, r.PathValue("id"), &in)
	respond(w, http.StatusOK, out, err)
}

func (a *api) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.DeleteEmployee(ctx, r.PathValue("id"))
	respond(w, http.StatusOK, out, err)
}

func (a *api) listSuppliers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.ListSuppliers(ctx)
	respond(w, http.StatusOK, out, err)
}

func (a *api) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in gate.SupplierInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.CreateSupplier(ctx, &in)
	respond(w, http.StatusCreated, out, err)
}

func (a *api) updateSupplier(w http.ResponseWriter, r *http.Request) {
	var in gate.SupplierInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.UpdateSupplier(ctx, r.PathValue("id"), &in)
	respond(w, http.StatusOK, out, err)
}

func (a *api) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.DeleteSupplier(ctx, r.PathValue("id"))
	respond(w, http.StatusOK, out, err)
}

// --- requests and declarations (public) ---

func (a *api) createRequest(w http.ResponseWriter, r *http.Request) {
	var in gate.CreateRequestInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.CreateRequest(ctx, &in)
	respond(w, http.StatusCreated, out, err)
}

func (a *api) getRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.GetRequest(ctx, r.PathValue("id"))
	respond(w, http.StatusOK, out, err)
}

// declarationPhotos are the multipart file fields of a declaration.
var declarationPhotos = []string{"idCardPhoto", "licensePlatePhoto", "vehiclePhoto"}

func (a *api) declare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Message: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
				Code:    gate.CodeInvalidArgument,
			})
			return
		}
		writeError(w, gate.NewGateError(gate.CodeInvalidArgument, "expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	photos := make(map[string]*gate.Photo, len(declarationPhotos))
	for _, field := range declarationPhotos {
		f, hdr, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			writeError(w, gate.NewGateError(gate.CodeInvalidArgument, "could not read "+field))
			return
		}
		defer closeFile(f)
		photos[field] = &gate.Photo{Filename: hdr.Filename, Content: f}
	}

	in := &gate.DeclareInput{
		ID:                r.PathValue("id"),
		DriverName:        r.FormValue("driverName"),
		DriverIDCard:      r.FormValue("driverIdCard"),
		LicensePlate:      r.FormValue("licensePlate"),
		VehicleType:       r.FormValue("vehicleType"),
		IDCardPhoto:       photos["idCardPhoto"],
		LicensePlatePhoto: photos["licensePlatePhoto"],
		VehiclePhoto:      photos["vehiclePhoto"],
	}

	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.Declare(ctx, in)
	respond(w, http.StatusOK, out, err)
}

func closeFile(f multipart.File) {
	if err := f.Close(); err != nil {
		slog.Debug(fmt.Sprintf("%s - close upload: %v", apiLogPrefix, err))
	}
}

// --- registrations (staff) ---

func (a *api) listRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.ListRegistrations(ctx)
	respond(w, http.StatusOK, out, err)
}

func (a *api) checkIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.CheckIn(ctx, r.PathValue("id"))
	respond(w, http.StatusOK, out, err)
}

func (a *api) checkOut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.CheckOut(ctx, r.PathValue("id"))
	respond(w, http.StatusOK, out, err)
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx, cancel := a.ctx(r)
	defer cancel()
	out, err := a.svc.History(ctx, &gate.HistoryInput{Start: q.Get("start"), End: q.Get("end"), Q: q.Get("q")})
	respond(w, http.StatusOK, out, err)
}
