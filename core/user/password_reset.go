package user

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	ErrInvalidResetLink = errors.New("invalid or expired password reset link")

	passwordResetTmpl = "password_reset"
)

// PasswordReset contains information needed to set a new password from a reset link.
type PasswordReset struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type passwordResetData struct {
	UserName string
	UID      string
	Token    string
}

type PasswordResetService struct {
	svc     *Service
	mailSvc core.EmailService
	tokens  *tokenGenerator
}

func NewPasswordResetService(svc *Service, mailSvc core.EmailService, conf *core.Config) *PasswordResetService {
	return &PasswordResetService{
		svc:     svc,
		mailSvc: mailSvc,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeout),
	}
}

// RequestPasswordReset emails a password reset link to the active user owning email.
// Unknown emails are silently ignored.
func (prs *PasswordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return nil
	}
	usr, err := prs.svc.GetByUsernameOrEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "getting user")
	}
	if usr.Email != email || !isActive(usr) {
		return nil
	}

	token, err := prs.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	prs.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: passwordResetTmpl,
		TemplateData: passwordResetData{
			UserName: usr.Name,
			UID:      EncodeUID(usr),
			Token:    token,
		},
	})
	return nil
}

// ResetPassword sets the new password of the user the reset link was made for.
// The password policy applies.
func (prs *PasswordResetService) ResetPassword(ctx context.Context, pr PasswordReset, validate *validator.Validate) (User, error) {
	pr.UID = core.CleanString(pr.UID)
	pr.Token = core.CleanString(pr.Token)
	if err := validate.Struct(pr); err != nil {
		return User{}, err
	}

	invalidLink := core.NewValidationError(ErrInvalidResetLink, core.FieldError{Field: "token", Error: ErrInvalidResetLink.Error()})
	id, err := decodeUID(pr.UID)
	if err != nil {
		return User{}, invalidLink
	}
	usr, err := prs.svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, invalidLink
		}
		return User{}, errors.Wrap(err, "getting user")
	}
	if !isActive(usr) {
		return User{}, invalidLink
	}
	if err = prs.tokens.verifyToken(usr, pr.Token); err != nil {
		if err == errInvalidToken || err == errTokenExpired {
			return User{}, invalidLink
		}
		return User{}, errors.Wrap(err, "verifying password reset token")
	}

	uu := UpdateUser{Password: pr.Password, PasswordConfirm: pr.PasswordConfirm}
	if err = uu.Validate(usr, validate, prs.svc); err != nil {
		return User{}, err
	}
	return prs.svc.Update(ctx, usr, uu)
}

// isActive reports whether usr may log in. Users are active unless deactivated.
func isActive(usr User) bool {
	return usr.IsActive == nil || *usr.IsActive
}
