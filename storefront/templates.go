package storefront

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return "$" + d.StringFixed(2)
	},
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
	"deref": func(id *uint) uint {
		if id == nil {
			return 0
		}
		return *id
	},
}

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// render adds the per-request layout data every page needs.
func (s *Storefront) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = takeFlashes(c)
	data["Authenticated"] = currentUserID(c) != 0
	data["Path"] = c.Request.URL.Path
	c.HTML(status, name, data)
}

func (s *Storefront) notFound(c *gin.Context) {
	if _, ok := c.Get(ownerKey); !ok {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Status": http.StatusNotFound, "Title": "Page not found"})
		return
	}
	s.render(c, http.StatusNotFound, "error.html", gin.H{"Status": http.StatusNotFound, "Title": "Page not found"})
}

func (s *Storefront) serverError(c *gin.Context, err error) {
	_ = c.Error(err)
	s.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	if _, ok := c.Get(ownerKey); !ok {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Status": http.StatusInternalServerError, "Title": "Something went wrong"})
		return
	}
	s.render(c, http.StatusInternalServerError, "error.html", gin.H{"Status": http.StatusInternalServerError, "Title": "Something went wrong"})
}
