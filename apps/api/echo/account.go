package echoapi

import (
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edecs/elearn/core"
	"github.com/edecs/elearn/core/account"
	"github.com/edecs/elearn/core/identity"
)

type accountApi struct {
	deps ServerDeps
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{deps: deps}

	// un-authed endpoints
	// TODO: rate limit `/auth/login` & `/auth/password-reset`
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)

	// admin endpoints
	acc := g.Group("/accounts", jwt, adminMiddleware())
	acc.POST("", api.create)
	acc.GET("", api.query)
	acc.PUT("/role", api.changeRole)
	acc.PUT("/grant", api.setCourseGrant)
	acc.DELETE("", api.destroy)
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), api.deps, data.Email, data.Password)
	if err != nil {
		return err
	}
	token, err := generateToken(api.deps.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	err := api.deps.AccountSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == core.ErrUserNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *accountApi) create(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.AccountSvc.CreateAccount(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "creating account")
	}

	rec, err := api.deps.AccountSvc.Roles().Get(ctx.Request().Context(), identity.Key(data.Email))
	if err != nil {
		return errors.Wrap(err, "reading created account")
	}
	return ctx.JSON(http.StatusCreated, newAccountResponse(identity.Key(data.Email), rec))
}

func (api *accountApi) query(ctx echo.Context) error {
	records, err := api.deps.AccountSvc.Roles().QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	accounts := make([]AccountResponse, 0, len(keys))
	for _, k := range keys {
		accounts = append(accounts, newAccountResponse(k, records[k]))
	}
	return ctx.JSON(http.StatusOK, accounts)
}

func (api *accountApi) changeRole(ctx echo.Context) error {
	var data account.ChangeRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeRole")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.AccountSvc.ChangeRole(ctx.Request().Context(), data.Email, data.Role); err != nil {
		return errors.Wrap(err, "changing role")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) setCourseGrant(ctx echo.Context) error {
	var data account.CourseGrant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseGrant")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	err := api.deps.AccountSvc.SetCourseGrant(ctx.Request().Context(), data.Email, data.CourseID, data.Granted)
	if err != nil {
		return errors.Wrap(err, "setting course grant")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) destroy(ctx echo.Context) error {
	var query DestroyAccountRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyAccountRequest")
	}
	if query.Email == "" {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! the caller cannot delete themselves
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if identity.Key(query.Email) == identity.Key(claims.Email) {
		return errHttpForbidden
	}

	if err := api.deps.AccountSvc.RemoveAccount(ctx.Request().Context(), query.Email); err != nil {
		return errors.Wrap(err, "removing account")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,portalemail"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyAccountRequest struct {
		Email string `query:"email"`
	}

	AccountResponse struct {
		Key     string   `json:"key"`
		Email   string   `json:"email"`
		Role    string   `json:"role"`
		Courses []string `json:"courses"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email)
	return validate.Struct(pr)
}

func newAccountResponse(key string, rec account.Record) AccountResponse {
	courses := rec.Courses
	if courses == nil {
		courses = []string{}
	}
	return AccountResponse{Key: key, Email: rec.Email, Role: rec.Role, Courses: courses}
}
