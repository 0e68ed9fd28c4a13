package user

import (
	"context"
	stderrors "errors"
	"net/mail"
	"text/template"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/auth"
)

var (
	errSelfDelete    = core.NewValidationError(errors.New("you cannot delete your own account"))
	errAdminRegister = core.NewValidationError(nil, core.FieldError{
		Field: "role",
		Error: "admin accounts cannot be self-registered",
	})

	passwordResetTmpl = template.Must(template.New("password_reset").Parse(`Hi {{.Username}},

You're receiving this email because you requested a password reset for your account at {{.AppName}}.

Please go to the following page and choose a new password:
{{.Link}}

If you did not request it, you can ignore this email.
`))
)

type (
	// Repository persists users. The store's uniqueness constraints are the final arbiter of
	// username/email conflicts: CreateUser and UpdateUser report them as *core.ConflictError.
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		// GetUser matches on the first non-zero field of the filter.
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND on the filter fields; Search is a case-insensitive match on username or email.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser returns the number of deleted rows, and a *core.ConflictError
		// while the user is still referenced.
		DeleteUser(ctx context.Context, id int) (int64, error)
	}

	// Hasher is the auth.Hasher able to spend the time of a failed verification
	// when there is nothing to verify against.
	Hasher interface {
		auth.Hasher
		Waste(plaintext string)
	}

	Deps struct {
		Repo       Repository
		Hasher     Hasher
		Issuer     *auth.Issuer
		Authorizer *auth.Authorizer
		Mail       core.EmailService
		Validate   *validator.Validate
		Translator ut.Translator
		Logger     core.Logger
		Conf       *core.Config
	}

	Service struct {
		repo       Repository
		hasher     Hasher
		issuer     *auth.Issuer
		authz      *auth.Authorizer
		mail       core.EmailService
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
		conf       *core.Config
		tokens     resetTokens
	}

	LoginResult struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		repo:       deps.Repo,
		hasher:     deps.Hasher,
		issuer:     deps.Issuer,
		authz:      deps.Authorizer,
		mail:       deps.Mail,
		validate:   deps.Validate,
		translator: deps.Translator,
		logger:     deps.Logger,
		conf:       deps.Conf,
		tokens: resetTokens{
			secret:  []byte(deps.Conf.SecretKey),
			timeout: deps.Conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.TranslateErrors(err, svc.translator)
	}
	return nil
}

// Register creates a teacher or student account for an anonymous caller.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.clean()
	if err := svc.validateStruct(nu); err != nil {
		return User{}, err
	}
	if nu.Role == core.RoleAdmin {
		return User{}, errAdminRegister
	}
	return svc.create(ctx, nu)
}

// Create creates an account of any role on behalf of an admin.
func (svc *Service) Create(ctx context.Context, caller auth.Caller, nu NewUser) (User, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpManageUsers); err != nil {
		return User{}, err
	}
	nu.clean()
	if err := svc.validateStruct(nu); err != nil {
		return User{}, err
	}
	return svc.create(ctx, nu)
}

// Provision creates an account of any role without a caller. It backs the admin CLI.
func (svc *Service) Provision(ctx context.Context, nu NewUser) (User, error) {
	nu.clean()
	if err := svc.validateStruct(nu); err != nil {
		return User{}, err
	}
	return svc.create(ctx, nu)
}

func (svc *Service) create(ctx context.Context, nu NewUser) (User, error) {
	hash, err := svc.hasher.Hash(nu.Password)
	if err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(ctx, User{
		Username:     nu.Username,
		Email:        nu.Email,
		Role:         nu.Role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

// Login checks the credentials and issues a session token.
// An unknown username and a wrong password both yield core.ErrAuthenticationFailed.
func (svc *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = core.CleanString(username, true /* lower */)
	usr, err := svc.repo.GetUser(ctx, GetFilter{Username: username})
	if err != nil {
		if stderrors.Is(err, core.ErrNotFound) {
			svc.hasher.Waste(password)
			return LoginResult{}, core.ErrAuthenticationFailed
		}
		return LoginResult{}, errors.Wrap(err, "finding user by username")
	}
	if !svc.hasher.Verify(password, usr.PasswordHash) {
		return LoginResult{}, core.ErrAuthenticationFailed
	}
	token, err := svc.issuer.Issue(usr.ID, usr.Username, usr.Role)
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "issuing token")
	}
	return LoginResult{Token: token, User: usr}, nil
}

// Me returns the caller's own account.
func (svc *Service) Me(ctx context.Context, caller auth.Caller) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: caller.ID})
	if err != nil {
		if stderrors.Is(err, core.ErrNotFound) {
			// deleted since the token was issued
			return User{}, core.ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by id")
	}
	return usr, nil
}

func (svc *Service) Get(ctx context.Context, caller auth.Caller, id int) (User, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpManageUsers); err != nil {
		return User{}, err
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

// GetByUsername is used by the admin CLI.
func (svc *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(username, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, caller auth.Caller, filter QueryFilter) ([]User, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpManageUsers); err != nil {
		return nil, err
	}
	filter.Clean()
	if filter.Role != "" && !filter.Role.Valid() {
		return []User{}, nil
	}
	users, err := svc.repo.QueryUsers(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

// Update is the explicit admin update: the only way a role ever changes.
func (svc *Service) Update(ctx context.Context, caller auth.Caller, id int, uu UpdateUser) (User, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpManageUsers); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	uu.clean(usr)
	if err = svc.validateStruct(uu); err != nil {
		return User{}, err
	}

	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.Password != "" {
		if usr.PasswordHash, err = svc.hasher.Hash(uu.Password); err != nil {
			return User{}, err
		}
	}
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

// SetPassword replaces the password of a user. It backs the admin CLI.
func (svc *Service) SetPassword(ctx context.Context, usr User, password string) error {
	if err := svc.validateStruct(ResetUserPassword{Token: "-", UID: "-", Password: password}); err != nil {
		return err
	}
	hash, err := svc.hasher.Hash(password)
	if err != nil {
		return err
	}
	usr.PasswordHash = hash
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user password")
}

func (svc *Service) Delete(ctx context.Context, caller auth.Caller, id int) error {
	if _, err := svc.authz.Require(ctx, caller, auth.OpManageUsers); err != nil {
		return err
	}
	if id == caller.ID {
		return errSelfDelete
	}
	n, err := svc.repo.DeleteUser(ctx, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// RequestPasswordReset mails a reset link to the owner of email.
// core.ErrNotFound is returned for an unknown email; callers must not reveal it.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	svc.mail.SendMessages(svc.passwordResetMessage(usr))
	return nil
}

func (svc *Service) passwordResetMessage(usr User) *core.EmailMessage {
	link := svc.conf.FrontendBaseURL + "/password-reset/" + EncodeUID(usr) + "/" + svc.tokens.makeToken(usr)
	return &core.EmailMessage{
		To:       []mail.Address{{Name: usr.Username, Address: usr.Email}},
		Subject:  "Password reset on " + svc.conf.AppName,
		Template: passwordResetTmpl,
		TemplateData: map[string]string{
			"Username": usr.Username,
			"AppName":  svc.conf.AppName,
			"Link":     link,
		},
	}
}

// ResetPassword sets a new password given a valid uid & token pair.
// Once used, the token no longer verifies since it is bound to the previous password hash.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	if err := svc.validateStruct(data); err != nil {
		return err
	}
	invalid := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalid
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		if stderrors.Is(err, core.ErrNotFound) {
			return invalid
		}
		return errors.Wrap(err, "finding user by id")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	hash, err := svc.hasher.Hash(data.Password)
	if err != nil {
		return err
	}
	usr.PasswordHash = hash
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user password")
	}
	return nil
}
