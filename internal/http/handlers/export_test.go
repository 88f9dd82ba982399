package handlers

// StatusResponse exposes statusResponse to the external test package.
type StatusResponse = statusResponse
