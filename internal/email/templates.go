package email

import "fmt"

// TestMessage returns the connection-test message operators send to check
// that a provider is configured correctly.
func TestMessage(to, appName string) Message {
	if appName == "" {
		appName = "HostedID"
	}

	return Message{
		To:       to,
		Subject:  fmt.Sprintf("[%s] - email test message", appName),
		HTMLBody: testMessageHTML(appName),
		TextBody: testMessageText(appName),
	}
}

func testMessageHTML(appName string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Test message</title>
</head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background-color:#f4f5f7;">
<table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f4f5f7;padding:40px 0;">
<tr><td align="center">
<table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;overflow:hidden;">
  <tr><td style="padding:32px 40px;">
    <p style="margin:0;font-size:15px;color:#4a4a68;line-height:1.6;">
      This is a test message from <strong>%s</strong>. If you can read it, outgoing email is working.
    </p>
  </td></tr>
</table>
</td></tr>
</table>
</body>
</html>`, appName)
}

func testMessageText(appName string) string {
	return fmt.Sprintf("This is a test message from %s. If you can read it, outgoing email is working.", appName)
}
