package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/upload"
)

const (
	declareLogPrefix   = "gate:declare"
	maxPlateLen        = 15
	maxDriverNameLen   = 50
	maxDriverIDCardLen = 12
	maxVehicleTypeLen  = 50
)

// Photo is one uploaded declaration image.
type Photo struct {
	Filename string
	Content  io.Reader
}

// DeclareInput holds the driver's declaration for a request.
type DeclareInput struct {
	ID                string
	DriverName        string
	DriverIDCard      string
	LicensePlate      string
	VehicleType       string
	IDCardPhoto       *Photo
	LicensePlatePhoto *Photo
	VehiclePhoto      *Photo
}

// NormalizePlate upper-cases a licence plate and drops everything but A-Z and 0-9.
func NormalizePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(plate) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func optional(s string) *string {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if s == "" {
		return nil
	}
	return &s
}

func validateDeclaration(input *DeclareInput) (string, *GateError) {
	if input.IDCardPhoto == nil || input.LicensePlatePhoto == nil || input.VehiclePhoto == nil {
		return "", &GateError{Code: CodeInvalidArgument, Message: "all three photos are required: idCardPhoto, licensePlatePhoto, vehiclePhoto"}
	}
	if err := validateID(input.ID); err != nil {
		return "", err
	}
	plate := NormalizePlate(input.LicensePlate)
	if plate == "" {
		return "", &GateError{Code: CodeInvalidArgument, Message: "licensePlate is required"}
	}
	for _, c := range []struct {
		field, value string
		max          int
	}{
		{"licensePlate", plate, maxPlateLen},
		{"driverName", strings.TrimSpace(input.DriverName), maxDriverNameLen},
		{"driverIdCard", strings.TrimSpace(input.DriverIDCard), maxDriverIDCardLen},
		{"vehicleType", strings.TrimSpace(input.VehicleType), maxVehicleTypeLen},
	} {
		if err := checkLength(c.field, c.value, c.max); err != nil {
			return "", err
		}
	}
	return plate, nil
}

// Declare attaches the driver, vehicle and photos to a request and marks it declared.
// The vehicle is upserted before the three photos are uploaded concurrently;
// any upload failure fails the declaration.
func (s *Service) Declare(ctx context.Context, input *DeclareInput) (*MessageOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	plate, gerr := validateDeclaration(input)
	if gerr != nil {
		return nil, gerr
	}

	existing, err := s.repo.GetRegistration(ctx, input.ID)
	if err != nil {
		return nil, storeError("GetRegistration", err)
	}
	if existing == nil {
		return nil, notFound("request")
	}

	// The vehicle goes first so a conflicting driver ID card leaves no uploaded photos behind.
	vehicle, err := s.repo.UpsertVehicle(ctx, db.UpsertVehicleParams{
		LicensePlate: plate,
		DriverName:   optional(input.DriverName),
		DriverIDCard: optional(input.DriverIDCard),
		VehicleType:  optional(input.VehicleType),
	})
	if err != nil {
		return nil, storeError("UpsertVehicle", err)
	}

	urls, gerr := s.uploadPhotos(ctx, input)
	if gerr != nil {
		return nil, gerr
	}

	reg, err := s.repo.DeclareRegistration(ctx, db.DeclareRegistrationParams{
		ID:        input.ID,
		VehicleID: vehicle.ID,
		ImageURLs: urls,
	})
	if err != nil {
		return nil, storeError("DeclareRegistration", err)
	}
	if reg == nil {
		return nil, notFound("request")
	}

	slog.Info(fmt.Sprintf("%s - declared id=%s plate=%s", declareLogPrefix, input.ID, plate))
	return &MessageOutput{Message: "declaration saved"}, nil
}

func (s *Service) uploadPhotos(ctx context.Context, input *DeclareInput) (db.ImageURLs, *GateError) {
	photos := []*Photo{input.IDCardPhoto, input.LicensePlatePhoto, input.VehiclePhoto}
	urls := make([]string, len(photos))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range photos {
		i, p := i, p
		g.Go(func() error {
			u, err := s.uploader.Upload(gctx, p.Filename, p.Content)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, upload.ErrNotConfigured) {
			return db.ImageURLs{}, &GateError{Code: CodeUnavailable, Message: "photo storage is not configured"}
		}
		slog.Error(fmt.Sprintf("%s - photo upload failed id=%s: %v", declareLogPrefix, input.ID, err))
		return db.ImageURLs{}, &GateError{Code: CodeInternal, Message: "photo upload failed"}
	}

	return db.ImageURLs{
		IDCardPhoto:       &urls[0],
		LicensePlatePhoto: &urls[1],
		VehiclePhoto:      &urls[2],
	}, nil
}
