package email

import (
	"fmt"
	"html"

	"toolshelf/internal/config"
	"toolshelf/internal/models"
)

// Templates renders the notification messages sent to submitters.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a Templates instance bound to the site config.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #0f766e; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .info-box { background: white; border: 1px solid #e5e7eb; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .label { font-weight: 600; color: #374151; }
        code { background: #e5e7eb; padding: 4px 10px; border-radius: 4px; font-family: monospace; font-size: 20px; letter-spacing: 3px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>Sent by Toolshelf</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), content, t.cfg.BaseURL, t.cfg.BaseURL)
}

// ToolApproved renders the message sent when a submission goes live.
func (t *Templates) ToolApproved(tool *models.Tool) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("Your tool %q is now live", tool.Name)

	toolURL := fmt.Sprintf("%s/tools/%s", t.cfg.BaseURL, tool.Slug)
	content := fmt.Sprintf(`
        <p>Good news! Your submission has been approved and is now listed in the directory.</p>
        <div class="info-box">
            <p><span class="label">Tool:</span> %s</p>
            <p><span class="label">Listing:</span> <a href="%s">%s</a></p>
        </div>`,
		html.EscapeString(tool.Name), toolURL, toolURL)

	htmlBody = t.baseHTML("Submission approved", content)
	textBody = fmt.Sprintf("Your tool %q has been approved and is now live at %s\n", tool.Name, toolURL)
	return subject, htmlBody, textBody
}

// ToolRejected renders the message sent when a submission is sent back. The
// reviewer's notes are included when given; the submitter may revise and
// resubmit either way.
func (t *Templates) ToolRejected(tool *models.Tool, reason string) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("Your tool %q needs changes", tool.Name)

	content := fmt.Sprintf(`
        <p>Your submission was reviewed and needs changes before it can be listed.</p>
        <div class="info-box">
            <p><span class="label">Tool:</span> %s</p>%s
        </div>
        <p>You can edit your submission and it will be reviewed again.</p>`,
		html.EscapeString(tool.Name), reviewerNotesHTML(reason))

	htmlBody = t.baseHTML("Changes requested", content)
	textBody = fmt.Sprintf("Your tool %q needs changes before it can be listed.\n%s\nYou can edit your submission and it will be reviewed again.\n", tool.Name, reviewerNotesText(reason))
	return subject, htmlBody, textBody
}

// ToolPermanentlyRejected renders the final rejection message. The submission
// can no longer be revised or resubmitted.
func (t *Templates) ToolPermanentlyRejected(tool *models.Tool, reason string) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("Your tool %q was not accepted", tool.Name)

	content := fmt.Sprintf(`
        <p>Your submission has been reviewed several times and will not be listed.</p>
        <div class="info-box">
            <p><span class="label">Tool:</span> %s</p>%s
        </div>
        <p>This decision is final and the submission can no longer be edited.</p>`,
		html.EscapeString(tool.Name), reviewerNotesHTML(reason))

	htmlBody = t.baseHTML("Submission closed", content)
	textBody = fmt.Sprintf("Your tool %q will not be listed.\n%s\nThis decision is final and the submission can no longer be edited.\n", tool.Name, reviewerNotesText(reason))
	return subject, htmlBody, textBody
}

func reviewerNotesHTML(reason string) string {
	if reason == "" {
		return ""
	}
	return fmt.Sprintf(`
            <p><span class="label">Reviewer notes:</span> %s</p>`, html.EscapeString(reason))
}

func reviewerNotesText(reason string) string {
	if reason == "" {
		return "\n"
	}
	return fmt.Sprintf("\nReviewer notes: %s\n\n", reason)
}

// SignInCode renders the one-time sign-in code message.
func (t *Templates) SignInCode(code string) (subject, htmlBody, textBody string) {
	subject = "Your Toolshelf sign-in code"

	content := fmt.Sprintf(`
        <p>Use this code to finish signing in:</p>
        <div class="info-box" style="text-align: center;">
            <p><code>%s</code></p>
        </div>
        <p>The code expires in 10 minutes. If you did not request it, ignore this message.</p>`,
		html.EscapeString(code))

	htmlBody = t.baseHTML("Sign in to Toolshelf", content)
	textBody = fmt.Sprintf("Your Toolshelf sign-in code is: %s\n\nThe code expires in 10 minutes. If you did not request it, ignore this message.\n", code)
	return subject, htmlBody, textBody
}
