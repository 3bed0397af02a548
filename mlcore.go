package mlcore

// Version is the current version of the mlcore library.
// Model weights exported by estimators embed this value so that
// compatibility can be checked on import.
const Version = "0.1.0"
