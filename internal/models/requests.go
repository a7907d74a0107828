package models

// Each operation has its own input type. Fields an operation does not list
// are simply absent, so e.g. a self-registration body cannot carry a role.

// RegisterRequest is the self-service registration payload.
type RegisterRequest struct {
	FirstName       string `json:"firstName" validate:"omitempty,max=100"`
	LastName        string `json:"lastName" validate:"omitempty,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Username        string `json:"username" validate:"required,notblank,max=50"`
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Image           string `json:"image,omitempty" validate:"omitempty,max=512"`
}

// AdminCreateUserRequest is RegisterRequest plus an optional role.
type AdminCreateUserRequest struct {
	RegisterRequest
	Role Role `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// UpdateSelfRequest is a partial update a user may apply to their own account.
type UpdateSelfRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Username  *string `json:"username,omitempty" validate:"omitempty,notblank,max=50"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
	Image     *string `json:"image,omitempty" validate:"omitempty,max=512"`
}

// AdminUpdateUserRequest additionally accepts a role.
type AdminUpdateUserRequest struct {
	UpdateSelfRequest
	Role *Role `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// LoginRequest only requires a non-empty password; length rules apply at creation.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expiresAt"`
	User      PublicUser `json:"user"`
}

// NewUserInput is the service-level input for account creation, built from a
// validated RegisterRequest or AdminCreateUserRequest.
type NewUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
	Image     string
	Role      Role
}

// ToNewUser builds the service input for self-registration. The role is
// always RoleUser on this path.
func (r RegisterRequest) ToNewUser() NewUserInput {
	return NewUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Username:  r.Username,
		Password:  r.Password,
		Image:     r.Image,
		Role:      RoleUser,
	}
}

// ToNewUser builds the service input for admin creation.
func (r AdminCreateUserRequest) ToNewUser() NewUserInput {
	in := r.RegisterRequest.ToNewUser()
	if r.Role != "" {
		in.Role = r.Role
	}
	return in
}

// UpdateInput is the service-level input for partial updates.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Username  *string
	Password  *string
	Image     *string
	Role      *Role
}

func (r UpdateSelfRequest) ToUpdate() UpdateInput {
	return UpdateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Username:  r.Username,
		Password:  r.Password,
		Image:     r.Image,
	}
}

func (r AdminUpdateUserRequest) ToUpdate() UpdateInput {
	in := r.UpdateSelfRequest.ToUpdate()
	in.Role = r.Role
	return in
}
