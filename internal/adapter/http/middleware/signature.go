package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"campaign-escrow/internal/core/ports"
	"campaign-escrow/pkg/apperror"
	"campaign-escrow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Gateway webhook headers
	HeaderSignature = "X-Razorpay-Signature"
	HeaderEventID   = "X-Razorpay-Event-Id"

	CtxRawBody = "raw_body"
)

// GatewaySignature reads the raw body once, verifies the gateway's HMAC over
// exactly those bytes and stores them for the handler. In unverified mode the
// verifier accepts everything.
func GatewaySignature(verifier ports.SignatureVerifier, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					response.Error(c, apperror.ErrPayloadTooLarge())
				} else {
					response.Error(c, apperror.ErrUnreadableBody(err))
				}
				c.Abort()
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := verifier.Verify(body, c.GetHeader(HeaderSignature)); err != nil {
			log.Warn().
				Str("client_ip", c.ClientIP()).
				Str("event_id", c.GetHeader(HeaderEventID)).
				Msg("webhook signature rejected")
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxRawBody, body)
		c.Next()
	}
}

// RawBody returns the body stored by GatewaySignature.
func RawBody(c *gin.Context) ([]byte, bool) {
	v, ok := c.Get(CtxRawBody)
	if !ok {
		return nil, false
	}
	body, ok := v.([]byte)
	return body, ok
}
