package callback

// Schema describes the redirect sent back by one identity provider.
type Schema struct {
	Provider        string
	ProviderIDParam string

	// login error codes
	FailureCode      string // provider error or insufficient parameters
	ParseFailureCode string // identity payload could not be parsed

	RequireName       bool
	RequireProviderID bool
}

var (
	AzureSchema = Schema{
		Provider:         "azure",
		ProviderIDParam:  "azureId",
		FailureCode:      "auth_failed",
		ParseFailureCode: "auth_failed",
		RequireName:      true,
	}

	GoogleSchema = Schema{
		Provider:         "google",
		ProviderIDParam:  "googleId",
		FailureCode:      "oauth_failed",
		ParseFailureCode: "oauth_processing_failed",
	}
)

// sufficient reports whether id is enough to commit a session.
func (s Schema) sufficient(id Identity) bool {
	if id.UserID == "" || id.Email == "" {
		return false
	}
	if s.RequireName && id.Name == "" && id.FirstName == "" {
		return false
	}
	if s.RequireProviderID && id.ProviderID == "" {
		return false
	}
	return true
}
