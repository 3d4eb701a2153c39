package oauth

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/oauth"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
)

//go:embed templates/login.html
var templatesFS embed.FS

var loginTmpl = template.Must(template.ParseFS(templatesFS, "templates/login.html"))

// AuthorizeController maneja GET /oauth2/authorize y POST /oauth2/authorize/submit.
type AuthorizeController struct {
	service svc.AuthorizeService
}

func NewAuthorizeController(service svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: service}
}

func authorizeRequest(v url.Values) dto.AuthorizeRequest {
	return dto.AuthorizeRequest{
		ResponseType: v.Get("response_type"),
		ClientID:     v.Get("client_id"),
		RedirectURI:  v.Get("redirect_uri"),
		Scope:        v.Get("scope"),
		State:        v.Get("state"),
		Nonce:        v.Get("nonce"),
	}
}

// Authorize maneja GET /oauth2/authorize
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	page, err := c.service.Authorize(r.Context(), authorizeRequest(r.URL.Query()))
	if err != nil {
		writeAuthorizeError(w, err)
		return
	}
	renderLogin(w, r, page)
}

// Submit maneja POST /oauth2/authorize/submit
func (c *AuthorizeController) Submit(w http.ResponseWriter, r *http.Request) {
	if err := helpers.ParseForm(w, r); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	f := r.PostForm
	in := dto.SubmitRequest{
		AuthorizeRequest: authorizeRequest(f),
		Username:         f.Get("username"),
		Password:         f.Get("password"),
		Challenge:        f.Get("challenge"),
	}
	in.ResponseType = "code"

	res, err := c.service.Submit(r.Context(), in)
	if err != nil {
		writeAuthorizeError(w, err)
		return
	}
	if res.Page != nil {
		renderLogin(w, r, res.Page)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

func renderLogin(w http.ResponseWriter, r *http.Request, page *dto.LoginPage) {
	var buf bytes.Buffer
	if err := loginTmpl.Execute(&buf, page); err != nil {
		logger.From(r.Context()).Error("render login page", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeAuthorizeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrUnsupportedResponseType):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("response_type must be code"))
	case errors.Is(err, svc.ErrInvalidRedirect):
		httperrors.WriteError(w, httperrors.ErrInvalidClient.WithDetail("invalid client_id or redirect_uri"))
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
