package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E201-E219)
	// ============================================

	"E201": {
		Category: CategoryConfig,
		Message:  "Ambiguous authority for component type",
		DocURL:   "https://vango.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryConfig,
		Message:  "Conflicting component declarations",
		DocURL:   "https://vango.dev/docs/errors/E202",
	},
	"E203": {
		Category: CategoryConfig,
		Message:  "Invalid runtime name",
		DocURL:   "https://vango.dev/docs/errors/E203",
	},
	"E204": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		DocURL:   "https://vango.dev/docs/errors/E204",
	},
	"E205": {
		Category: CategoryConfig,
		Message:  "Config parse error",
		DocURL:   "https://vango.dev/docs/errors/E205",
	},
	"E206": {
		Category: CategoryConfig,
		Message:  "Component not registered",
		DocURL:   "https://vango.dev/docs/errors/E206",
	},
	"E207": {
		Category: CategoryConfig,
		Message:  "Invalid component declaration",
		DocURL:   "https://vango.dev/docs/errors/E207",
	},
	"E208": {
		Category: CategoryConfig,
		Message:  "Config file already exists",
		DocURL:   "https://vango.dev/docs/errors/E208",
	},

	// ============================================
	// Caller Misuse Errors (E230-E239)
	// ============================================

	"E230": {
		Category: CategoryMisuse,
		Message:  "Root component already attached to element",
		DocURL:   "https://vango.dev/docs/errors/E230",
	},
	"E231": {
		Category: CategoryMisuse,
		Message:  "Element binding is disposed",
		DocURL:   "https://vango.dev/docs/errors/E231",
	},
	"E232": {
		Category: CategoryMisuse,
		Message:  "Root component is not bound",
		DocURL:   "https://vango.dev/docs/errors/E232",
	},
	"E233": {
		Category: CategoryMisuse,
		Message:  "Proxy component is disposed",
		DocURL:   "https://vango.dev/docs/errors/E233",
	},

	// ============================================
	// Transport Errors (E240-E249)
	// ============================================

	"E240": {
		Category: CategoryTransport,
		Message:  "Remote runtime disconnected",
		DocURL:   "https://vango.dev/docs/errors/E240",
	},
	"E241": {
		Category: CategoryTransport,
		Message:  "No route to runtime",
		DocURL:   "https://vango.dev/docs/errors/E241",
	},
	"E242": {
		Category: CategoryTransport,
		Message:  "Malformed operation arguments",
		DocURL:   "https://vango.dev/docs/errors/E242",
	},
	"E243": {
		Category: CategoryTransport,
		Message:  "Runtime start wait aborted",
		DocURL:   "https://vango.dev/docs/errors/E243",
	},

	// ============================================
	// Remote Invocation Errors (E250-E259)
	// ============================================

	"E250": {
		Category: CategoryRemote,
		Message:  "Callback target failed",
		DocURL:   "https://vango.dev/docs/errors/E250",
	},
	"E251": {
		Category: CategoryRemote,
		Message:  "Callback handle unknown or revoked",
		DocURL:   "https://vango.dev/docs/errors/E251",
	},

	// ============================================
	// CLI Errors (E280-E289)
	// ============================================

	"E280": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		DocURL:   "https://vango.dev/docs/errors/E280",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
