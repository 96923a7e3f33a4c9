package notificare

// Version is the SDK version reported in device registration payloads and
// the User-Agent header.
const Version = "1.0.0"
