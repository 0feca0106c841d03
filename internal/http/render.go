package http

import (
	"crypto/md5"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sujalbistaa/quillpost/internal/auth"
)

const flashKey = "flash"

//go:embed templates/*.html
var templateFS embed.FS

var bodyPolicy = bluemonday.UGCPolicy()

var templateFuncs = template.FuncMap{
	"gravatar": gravatarURL,
	// post bodies and comments come from a rich text editor
	"richText": func(s string) template.HTML {
		return template.HTML(bodyPolicy.Sanitize(s))
	},
}

// ParseTemplates loads every page and partial embedded in the binary.
func ParseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=100&r=g&d=retro", hex.EncodeToString(sum[:]))
}

// render executes a page with the data every layout needs.
func (e *Env) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if errs, _ := data["Errors"].(map[string]string); errs == nil {
		data["Errors"] = map[string]string{}
	}
	id := auth.FromContext(c.Request.Context())
	data["Identity"] = id
	data["LoggedIn"] = id.Authenticated()
	data["IsAdmin"] = auth.IsAdmin(id)
	data["Flashes"] = e.popFlashes(c)
	data["Path"] = c.Request.URL.Path
	data["CSRFToken"] = csrf.Token(c.Request)
	data[csrf.TemplateTag] = csrf.TemplateField(c.Request)
	c.HTML(status, page, data)
}

func (e *Env) renderError(c *gin.Context, status int, message string) {
	e.render(c, status, "error.html", gin.H{"Status": status, "Message": message})
}

func (e *Env) flash(c *gin.Context, msg string) {
	ctx := c.Request.Context()
	msgs, _ := e.Sessions.Get(ctx, flashKey).([]string)
	e.Sessions.Put(ctx, flashKey, append(msgs, msg))
}

func (e *Env) popFlashes(c *gin.Context) []string {
	msgs, _ := e.Sessions.Pop(c.Request.Context(), flashKey).([]string)
	return msgs
}
