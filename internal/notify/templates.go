package notify

import (
	"bytes"
	"html/template"
	"time"
)

const layout = `<div style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
<h2 style="color: #007BFF; text-align: center;">{{.Heading}}</h2>
<p>Dear <strong>{{.Name}}</strong>,</p>
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .Code}}<p style="font-size: 24px; letter-spacing: 6px; text-align: center;"><strong>{{.Code}}</strong></p>
{{end}}<p>Best regards,</p>
<p><strong>Pantognostis</strong></p>
</div>`

var page = template.Must(template.New("email").Parse(layout))

type pageData struct {
	Heading string
	Name    string
	Lines   []string
	Code    string
}

func render(data pageData) (string, error) {
	if data.Name == "" {
		data.Name = "user"
	}
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EnrollmentConfirmation is sent after a course purchase is confirmed.
func EnrollmentConfirmation(name, courseTitle string) (subject, body string, err error) {
	body, err = render(pageData{
		Heading: "Course Purchase Confirmed",
		Name:    name,
		Lines: []string{
			"Thank you for purchasing the course " + courseTitle + ".",
			"You now have full access to the course materials and content.",
			"Happy learning!",
		},
	})
	return "Course Purchase Successful", body, err
}

// VerificationCode carries the e-mail verification code sent at signup.
func VerificationCode(name, code string, ttl time.Duration) (subject, body string, err error) {
	body, err = render(pageData{
		Heading: "Verify Your E-mail",
		Name:    name,
		Lines:   []string{"Use the code below to verify your e-mail address. It expires in " + ttl.String() + "."},
		Code:    code,
	})
	return "Your verification code", body, err
}

// PasswordResetCode carries the code for resetting a forgotten password.
func PasswordResetCode(name, code string, ttl time.Duration) (subject, body string, err error) {
	body, err = render(pageData{
		Heading: "Reset Your Password",
		Name:    name,
		Lines: []string{
			"We received a request to reset your password. It expires in " + ttl.String() + ".",
			"If you did not request this, you can ignore this e-mail.",
		},
		Code: code,
	})
	return "Your password reset code", body, err
}

// InstructorDecision tells an applicant whether their instructor application was approved.
func InstructorDecision(name string, approved bool) (subject, body string, err error) {
	if approved {
		body, err = render(pageData{
			Heading: "Instructor Application Approved",
			Name:    name,
			Lines:   []string{"Your instructor application has been approved. You can now publish courses."},
		})
		return "Your instructor application was approved", body, err
	}
	body, err = render(pageData{
		Heading: "Instructor Access Cancelled",
		Name:    name,
		Lines:   []string{"Your instructor access has been cancelled. Contact support if you think this is a mistake."},
	})
	return "Your instructor access was cancelled", body, err
}

// WebinarReminder reminds a registered watcher of an upcoming webinar.
func WebinarReminder(name, title, link string, startsAt time.Time) (subject, body string, err error) {
	lines := []string{"The webinar " + title + " starts at " + startsAt.UTC().Format("2006-01-02 15:04 MST") + "."}
	if link != "" {
		lines = append(lines, "Join here: "+link)
	}
	body, err = render(pageData{
		Heading: "Webinar Reminder",
		Name:    name,
		Lines:   lines,
	})
	return "Reminder: " + title, body, err
}

// SupportRequest forwards a contact form submission to the support inbox.
func SupportRequest(name, email, phone, message string) (subject, body string, err error) {
	lines := []string{"From: " + name + " <" + email + ">"}
	if phone != "" {
		lines = append(lines, "Phone: "+phone)
	}
	lines = append(lines, message)
	body, err = render(pageData{
		Heading: "Support Request",
		Name:    "support team",
		Lines:   lines,
	})
	return "Support Request from " + name, body, err
}
