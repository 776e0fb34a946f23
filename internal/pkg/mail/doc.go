// Package mail sends email messages. It backs the email delivery channel and
// is kept separate so the channel layer does not speak SMTP itself.
package mail
