// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the session watch stream.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	SessionEndedError     = 3004 // The watched game finished or the seat was voted out.
)
