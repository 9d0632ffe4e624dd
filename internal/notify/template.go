package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/clydetadiwa/folio/internal/storage"
)

// emailData feeds both publish-notification templates. Fields are derived
// purely from the entity and site config so rendering is deterministic.
type emailData struct {
	Title     string
	Summary   string
	ImageURL  string
	LinkURL   string
	LinkLabel string
	DateLine  string
	SiteName  string
	SiteURL   string
	Year      int
}

// emailTmpl is the HTML wrapper applied to every publish notification.
// All fields are auto-escaped by html/template.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1.0">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:20px;background-color:#f8f8f8;
     font-family:'Roboto','Arial',sans-serif;color:#333;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" border="0">
    <tr>
      <td align="center">
        <table role="presentation" width="600" cellspacing="0" cellpadding="0" border="0"
               style="max-width:600px;width:100%;">
          <tr>
            <td style="padding:30px 0;text-align:center;">
              <h1 style="font-size:28px;margin-bottom:20px;color:#007bff;">{{.Title}}</h1>
              <p style="font-size:16px;color:#777;">{{.DateLine}}</p>
            </td>
          </tr>
          {{if .ImageURL}}
          <tr>
            <td>
              <a href="{{.LinkURL}}" style="display:block;">
                <img src="{{.ImageURL}}" alt="{{.Title}}"
                     style="width:100%;border-radius:8px;margin-bottom:20px;display:block;">
              </a>
            </td>
          </tr>
          {{end}}
          <tr>
            <td style="padding:0 20px;">
              <p style="font-size:16px;line-height:1.6;color:#555;">{{.Summary}}</p>
            </td>
          </tr>
          <tr>
            <td style="padding:20px 0;text-align:center;">
              <a href="{{.LinkURL}}"
                 style="display:inline-block;padding:12px 24px;background-color:#007bff;color:#fff;
                        text-decoration:none;border-radius:6px;font-weight:bold;">
                {{.LinkLabel}} &rarr;
              </a>
            </td>
          </tr>
          <tr>
            <td style="padding-top:30px;border-top:1px solid #eee;text-align:center;
                       color:#999;font-size:14px;">
              <p style="margin-bottom:10px;">Stay updated with the latest from
                <a href="{{.SiteURL}}" style="color:#007bff;text-decoration:none;">{{.SiteName}}</a>.
              </p>
              <p style="margin-bottom:0;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

// renderPostEmail builds the subject and HTML body announcing a blog post.
func renderPostEmail(p *storage.Post, siteURL, siteName string) (subject, body string, err error) {
	published := p.CreatedAt
	if p.PublishedAt != nil {
		published = *p.PublishedAt
	}
	data := emailData{
		Title:     p.Title,
		Summary:   p.Excerpt,
		ImageURL:  p.CoverImage,
		LinkURL:   fmt.Sprintf("%s/blog/%s", siteURL, p.Slug),
		LinkLabel: "Read the Full Post",
		DateLine:  "Published on " + published.Format("January 2, 2006"),
		SiteName:  siteName,
		SiteURL:   siteURL,
		Year:      published.Year(),
	}
	body, err = renderEmail(data)
	return fmt.Sprintf("✨ New Blog Post Alert: %s is Now Live!", p.Title), body, err
}

// renderProjectEmail builds the subject and HTML body announcing a project.
func renderProjectEmail(p *storage.Project, siteURL, siteName string) (subject, body string, err error) {
	data := emailData{
		Title:     p.Title,
		Summary:   p.Description,
		ImageURL:  p.ImageURL,
		LinkURL:   siteURL + "/projects",
		LinkLabel: "View Project Details",
		DateLine:  "Explore the latest addition to the portfolio!",
		SiteName:  siteName,
		SiteURL:   siteURL,
		Year:      projectYear(p),
	}
	body, err = renderEmail(data)
	return fmt.Sprintf("🚀 New Project Showcase: %s is Live!", p.Title), body, err
}

func projectYear(p *storage.Project) int {
	if p.CreatedAt.IsZero() {
		return time.Now().Year()
	}
	return p.CreatedAt.Year()
}

func renderEmail(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering email template: %w", err)
	}
	return buf.String(), nil
}
