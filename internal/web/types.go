package web

type PaginationData struct {
	BasePath   string `json:"basePath"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
	HasPrev    bool   `json:"hasPrev"`
	HasNext    bool   `json:"hasNext"`
	PrevPage   int    `json:"prevPage,omitempty"`
	NextPage   int    `json:"nextPage,omitempty"`
}

// Page describes the shell every view renders into.
type Page struct {
	Title string
	// Roles gate the page client-side; empty means public.
	Roles    []string
	BodyHTML string
	Script   string
}
