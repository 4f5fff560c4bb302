package notify

import (
	"html/template"
	"strings"
	"time"

	"ewintr.nl/tubedigest/model"
)

// emailTmpl wraps the summary in a complete html document. The summary is
// model output that already contains markup, so it is injected as-is.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<style>
		body {
			font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
			line-height: 1.6;
			color: #333;
			max-width: 800px;
			margin: 0 auto;
			padding: 20px;
			background-color: #f5f5f5;
		}
		.container {
			background-color: #ffffff;
			padding: 30px;
			border-radius: 8px;
			box-shadow: 0 2px 4px rgba(0,0,0,0.1);
		}
		h1, h2, h3, h4 {
			margin-top: 20px;
			margin-bottom: 10px;
		}
		a {
			color: #3498db;
			text-decoration: none;
		}
		ul, ol {
			padding-left: 25px;
		}
		li {
			margin-bottom: 8px;
		}
	</style>
</head>
<body>
	<div class="container">
		<h1 style="color: #2c3e50; border-bottom: 3px solid #e74c3c; padding-bottom: 10px;">
		New video from {{.ChannelName}}
		</h1>

		<div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
		<p><strong>Title:</strong> {{.Title}}</p>
		<p><strong>Published:</strong> {{.PublishedAt}}</p>
		<p><strong>Link:</strong> <a href="{{.URL}}" style="color: #3498db;">{{.URL}}</a></p>
		</div>

		<hr style="border: 1px solid #ddd; margin: 30px 0;">

		<h2 style="color: #34495e;">Summary</h2>

		<div style="margin-top: 20px;">
		{{.Summary}}
		</div>

		<hr style="border: 1px solid #ddd; margin: 30px 0;">

		<p style="color: #999; font-size: 12px; text-align: center;">
		This email was sent automatically by the tubedigest channel monitor.
		</p>
	</div>
</body>
</html>
`))

type emailData struct {
	ChannelName string
	Title       string
	PublishedAt string
	URL         string
	Summary     template.HTML
}

func renderEmail(channelName string, video model.Video, summary string) (string, error) {
	var b strings.Builder
	err := emailTmpl.Execute(&b, emailData{
		ChannelName: channelName,
		Title:       video.Title,
		PublishedAt: video.PublishedAt.Format(time.RFC3339),
		URL:         video.URL(),
		Summary:     template.HTML(summary),
	})
	if err != nil {
		return "", err
	}

	return b.String(), nil
}
