// Package jwt issues and verifies the access/refresh token pairs handed out
// after a successful OTP verification or password login. [Manager] satisfies
// goOTP.TokenIssuer.
package jwt
