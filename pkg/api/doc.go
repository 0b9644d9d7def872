// Package api defines the identifier, status, and snapshot types shared
// between the runtime and its host: the dialogue engine embedding this
// module, the external action executor, and any persistence layer.
package api
