package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morezero/gate-registration/pkg/auth"
	"github.com/morezero/gate-registration/pkg/db"
)

const (
	usersLogPrefix   = "gate:users"
	maxUsernameLen   = 50
	minPasswordLen   = 1
	maxPasswordBytes = 72 // bcrypt limit
)

func validateRole(role string) *GateError {
	if role != auth.RoleAdmin && role != auth.RoleStaff {
		return &GateError{Code: CodeInvalidArgument, Message: "role must be admin or staff"}
	}
	return nil
}

func validatePassword(pw string) *GateError {
	if len(pw) < minPasswordLen {
		return &GateError{Code: CodeInvalidArgument, Message: "password is required"}
	}
	if len(pw) > maxPasswordBytes {
		return &GateError{Code: CodeInvalidArgument, Message: fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes)}
	}
	return nil
}

// Login checks the credentials and issues an access token.
// Unknown users and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	badCredentials := &GateError{Code: CodeUnauthenticated, Message: "invalid username or password"}
	if input.Username == "" || input.Password == "" {
		return nil, badCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, input.Username)
	if err != nil {
		return nil, storeError("Login", err)
	}
	if user == nil || !auth.CheckPassword(user.Password, input.Password) {
		slog.Warn(fmt.Sprintf("%s - failed login for username=%s", usersLogPrefix, input.Username))
		return nil, badCredentials
	}

	token, err := auth.IssueToken(s.config.JWTSecret, user.ID, user.Username, user.Role, s.config.TokenTTL)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - issue token: %v", usersLogPrefix, err))
		return nil, &GateError{Code: CodeInternal, Message: "could not issue token"}
	}

	slog.Info(fmt.Sprintf("%s - login username=%s role=%s", usersLogPrefix, user.Username, user.Role))
	return &LoginOutput{Token: token, Role: user.Role, Username: user.Username}, nil
}

// ListUsers returns every user account. Password hashes are never serialized.
func (s *Service) ListUsers(ctx context.Context) ([]db.User, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, storeError("ListUsers", err)
	}
	return users, nil
}

// CreateUser creates an account with a hashed password. Role defaults to staff.
func (s *Service) CreateUser(ctx context.Context, input *CreateUserInput) (*db.User, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "username is required"}
	}
	if err := checkLength("username", username, maxUsernameLen); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = auth.RoleStaff
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - hash password: %v", usersLogPrefix, err))
		return nil, &GateError{Code: CodeInternal, Message: "could not hash password"}
	}
	user, err := s.repo.CreateUser(ctx, username, hash, role)
	if err != nil {
		return nil, storeError("CreateUser", err)
	}
	return user, nil
}

// UpdateUserRole changes the role of a user.
func (s *Service) UpdateUserRole(ctx context.Context, id string, input *UpdateUserRoleInput) (*db.User, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := validateRole(input.Role); err != nil {
		return nil, err
	}
	user, err := s.repo.UpdateUserRole(ctx, id, input.Role)
	if err != nil {
		return nil, storeError("UpdateUserRole", err)
	}
	if user == nil {
		return nil, notFound("user")
	}
	slog.Info(fmt.Sprintf("%s - role changed id=%s role=%s", usersLogPrefix, id, input.Role))
	return user, nil
}

// ResetPassword replaces the password of a user.
func (s *Service) ResetPassword(ctx context.Context, id string, input *ResetPasswordInput) (*MessageOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := validatePassword(input.NewPassword); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return nil, &GateError{Code: CodeInternal, Message: "could not hash password"}
	}
	ok, err := s.repo.UpdateUserPassword(ctx, id, hash)
	if err != nil {
		return nil, storeError("ResetPassword", err)
	}
	if !ok {
		return nil, notFound("user")
	}
	slog.Info(fmt.Sprintf("%s - password reset id=%s", usersLogPrefix, id))
	return &MessageOutput{Message: "password reset"}, nil
}

// DeleteUser removes a user account.
func (s *Service) DeleteUser(ctx context.Context, id string) (*MessageOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	ok, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return nil, storeError("DeleteUser", err)
	}
	if !ok {
		return nil, notFound("user")
	}
	slog.Info(fmt.Sprintf("%s - deleted id=%s", usersLogPrefix, id))
	return &MessageOutput{Message: "user deleted"}, nil
}
