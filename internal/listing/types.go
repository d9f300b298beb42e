package listing

// Channel identifies the sales or lettings side of the listing site.
type Channel string

const (
	ChannelBuy  Channel = "BUY"
	ChannelRent Channel = "RENT"
)

// Summary is the coarse record returned by an area search: the listing id and
// its map location.
type Summary struct {
	ID       int64 `json:"id"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// SearchResult is the decoded payload of one area search.
type SearchResult struct {
	Properties []Summary `json:"properties"`
}

// Count returns the number of listings the viewport produced.
func (r *SearchResult) Count() int {
	return len(r.Properties)
}

// Detail is the full listing record returned by the batch detail endpoint.
type Detail struct {
	ID              int64   `json:"id"`
	Bedrooms        *int    `json:"bedrooms"`
	Bathrooms       *int    `json:"bathrooms"`
	Summary         string  `json:"summary"`
	DisplayAddress  string  `json:"displayAddress"`
	PropertySubType *string `json:"propertySubType"`
	Description     string  `json:"propertyTypeFullDescription"`
	PremiumListing  bool    `json:"premiumListing"`
	Price           struct {
		Amount        float64 `json:"amount"`
		Frequency     string  `json:"frequency"`
		DisplayPrices []struct {
			DisplayPriceQualifier *string `json:"displayPriceQualifier"`
		} `json:"displayPrices"`
	} `json:"price"`
	Customer struct {
		BrandTradingName string `json:"brandTradingName"`
		BranchName       string `json:"branchName"`
	} `json:"customer"`
	Development      bool   `json:"development"`
	Commercial       bool   `json:"commercial"`
	EnhancedListing  bool   `json:"enhancedListing"`
	Students         bool   `json:"students"`
	Auction          bool   `json:"auction"`
	FirstVisibleDate string `json:"firstVisibleDate"`
	DisplaySize      string `json:"displaySize"`
	AddedOrReduced   string `json:"addedOrReduced"`
	PropertyImages   struct {
		Images []struct {
			SrcURL  string  `json:"srcUrl"`
			Caption *string `json:"caption"`
		} `json:"images"`
	} `json:"propertyImages"`
}

type detailResult struct {
	Properties []Detail `json:"properties"`
}
