// Package mail provides goOTP.EmailSender implementations: SMTP delivery for
// production, plus structured-log and writer senders for development.
package mail
