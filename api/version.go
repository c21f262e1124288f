package api

// Version is reported in the User-Agent header.
const Version = "0.1.0"
