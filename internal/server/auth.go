package server

import (
	"errors"
	"net/http"
	"strings"

	"oceanwatch/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cognitoClient == nil || s.users == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Registration is not configured")
		return
	}

	var req types.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		s.logger.WithError(err).Warn("failed to decode register request")
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)

	if req.Name == "" || req.Email == "" || req.Password == "" || req.Phone == "" || req.Address == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(s.config.CognitoClientID),
		Username: aws.String(req.Email), // use email as username
		Password: aws.String(req.Password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(req.Email)},
			{Name: aws.String("name"), Value: aws.String(req.Name)},
			{Name: aws.String("address"), Value: aws.String(req.Address)},
		},
	}

	out, err := s.cognitoClient.SignUp(ctx, input)
	if err != nil {
		status, message := s.mapCognitoSignUpError(err)
		writeMessage(w, status, message)
		return
	}

	user := &types.User{
		ID:      aws.ToString(out.UserSub),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   aws.String(req.Phone),
		Address: aws.String(req.Address),
		Role:    types.UserRoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to create user profile")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
	})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cognitoClient == nil || s.users == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Login is not configured")
		return
	}

	var req types.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": req.Email,
			"PASSWORD": req.Password,
		},
	}

	resp, err := s.cognitoClient.InitiateAuth(ctx, input)
	if err != nil || resp.AuthenticationResult == nil {
		// NotAuthorizedException, UserNotConfirmedException, etc.
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	user, err := s.users.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			writeMessage(w, http.StatusBadRequest, "User not found")
			return
		}
		s.logger.WithError(err).Error("failed to fetch user profile")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	s.logger.WithField("user_id", user.ID).Info("user logged in")

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user,
	})
}

func (s *Service) mapCognitoSignUpError(err error) (int, string) {
	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		return http.StatusBadRequest, "User already exists"
	}

	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		return http.StatusBadRequest, "Password must include uppercase, lowercase, number, and symbol"
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return http.StatusBadRequest, "Some details are invalid. Please review and try again."
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return http.StatusInternalServerError, "Server error"
}
