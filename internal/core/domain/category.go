package domain

// Language is the UI locale forwarded to the categorization service. It only
// sets the default language on each request item; nothing else depends on it.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageKorean  Language = "ko"
)

// ParseLanguage maps a UI locale tag ("ko", "ko-KR", "en-US", ...) onto a
// supported Language, falling back to English.
func ParseLanguage(locale string) Language {
	if len(locale) >= 2 {
		switch locale[:2] {
		case "ko", "KO", "Ko":
			return LanguageKorean
		case "en", "EN", "En":
			return LanguageEnglish
		}
	}
	return LanguageEnglish
}

const (
	// DefaultSemanticTopK is the number of candidate categories the remote
	// service considers per product.
	DefaultSemanticTopK = 15

	// MaxSubmissionItems is the hard per-submission ceiling the client
	// enforces before any network call.
	MaxSubmissionItems = 3000
)

// CategoryInputData is the canonical per-product payload built from one
// spreadsheet row.
type CategoryInputData struct {
	ProductNumber int      `json:"product_number" validate:"min=0"`
	ProductName   string   `json:"product_name"`
	Hashtags      []string `json:"hashtags"`
	Keywords      []string `json:"keywords"`
	MainImageLink string   `json:"main_image_link" validate:"omitempty,url"`
	SalesStatus   string   `json:"sales_status" validate:"required"`
	Manufacturer  string   `json:"manufacturer"`
	ModelName     string   `json:"model_name"`
	EditDetails   string   `json:"edit_details"`
}

// RequestOptions carries the submission-level fields shared by every item in
// one batch.
type RequestOptions struct {
	Language               Language `json:"language" validate:"required,oneof=en ko"`
	SemanticTopK           int      `json:"semantic_top_k" validate:"min=1,max=50"`
	FirstCategoryViaLLM    bool     `json:"first_category_via_llm"`
	DescriptiveTitleViaLLM bool     `json:"descriptive_title_via_llm"`
	RoundOutKeywordsViaLLM bool     `json:"round_out_keywords_via_llm"`
	BroadKeywordMatching   bool     `json:"broad_keyword_matching"`
}

// DefaultRequestOptions returns the option set used when the caller supplies
// nothing beyond the locale.
func DefaultRequestOptions(lang Language) RequestOptions {
	if lang == "" {
		lang = LanguageEnglish
	}
	return RequestOptions{
		Language:               lang,
		SemanticTopK:           DefaultSemanticTopK,
		FirstCategoryViaLLM:    false,
		DescriptiveTitleViaLLM: true,
		RoundOutKeywordsViaLLM: true,
		BroadKeywordMatching:   true,
	}
}

// CategoryRequestItem is one product plus the submission options, serialized
// flat on the wire.
type CategoryRequestItem struct {
	CategoryInputData
	RequestOptions
}

// CategoryResponseItem is the enriched result the remote service returns per
// product. Fields the service could not determine come back null.
type CategoryResponseItem struct {
	ProductNumber         int      `json:"product_number"`
	OriginalProductName   string   `json:"original_product_name"`
	OriginalKeywords      []string `json:"original_keywords"`
	OriginalMainImageLink string   `json:"original_main_image_link"`

	ProductName                string   `json:"product_name"`
	Keywords                   []string `json:"keywords"`
	MatchedCategories          []string `json:"matched_categories"`
	CategoryNumber             *int64   `json:"category_number"`
	Brand                      *string  `json:"brand"`
	Manufacturer               *string  `json:"manufacturer"`
	ModelName                  *string  `json:"model_name"`
	DetailedDescriptionEditing *string  `json:"detailed_description_editing"`
}
