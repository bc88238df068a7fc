package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	books "google.golang.org/api/books/v1"
	"google.golang.org/api/option"

	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/models"
)

const (
	librarianMaxSteps = 30
	maxBookResults    = 5
)

// ToolRunner drives a function-calling conversation with the model.
type ToolRunner interface {
	RunTools(ctx context.Context, systemPrompt string, tools []*genai.FunctionDeclaration, prompt string, exec ToolExecutor, maxSteps int) (string, error)
}

// BooksCatalog is the part of the cluster the librarian may inspect.
type BooksCatalog interface {
	Search(ctx context.Context, index string, body interface{}) (*models.SearchHits, error)
	ListIndices(ctx context.Context) ([]map[string]interface{}, error)
	GetMapping(ctx context.Context, index string) (json.RawMessage, error)
}

// BookOffer is the purchase information of one Google Books volume.
type BookOffer struct {
	Title        string   `json:"title"`
	Authors      []string `json:"authors,omitempty"`
	Saleability  string   `json:"saleability"`
	Price        float64  `json:"price,omitempty"`
	CurrencyCode string   `json:"currency_code,omitempty"`
	BuyLink      string   `json:"buy_link,omitempty"`
	InfoLink     string   `json:"info_link,omitempty"`
}

// BookStore looks up purchase information by title and author.
type BookStore interface {
	FindOffers(ctx context.Context, title, author string) ([]BookOffer, error)
}

// GoogleBooksStore queries the Google Books volumes API.
type GoogleBooksStore struct {
	svc *books.Service
}

func NewGoogleBooksStore(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleBooksStore, error) {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}
	svc, err := books.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Books client: %w", err)
	}
	return &GoogleBooksStore{svc: svc}, nil
}

func (g *GoogleBooksStore) FindOffers(ctx context.Context, title, author string) ([]BookOffer, error) {
	q := "intitle:" + title
	if author != "" {
		q += " inauthor:" + author
	}

	resp, err := g.svc.Volumes.List(q).MaxResults(maxBookResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Google Books API error: %w", err)
	}

	offers := make([]BookOffer, 0, len(resp.Items))
	for _, v := range resp.Items {
		offer := BookOffer{}
		if v.VolumeInfo != nil {
			offer.Title = v.VolumeInfo.Title
			offer.Authors = v.VolumeInfo.Authors
			offer.InfoLink = v.VolumeInfo.InfoLink
		}
		if v.SaleInfo != nil {
			offer.Saleability = v.SaleInfo.Saleability
			offer.BuyLink = v.SaleInfo.BuyLink
			if v.SaleInfo.ListPrice != nil {
				offer.Price = v.SaleInfo.ListPrice.Amount
				offer.CurrencyCode = v.SaleInfo.ListPrice.CurrencyCode
			}
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// LibrarianService answers book questions with tool calls against the books
// index and Google Books.
type LibrarianService struct {
	runner     ToolRunner
	catalog    BooksCatalog
	store      BookStore
	booksIndex string
}

func NewLibrarianService(runner ToolRunner, catalog BooksCatalog, store BookStore, booksIndex string) *LibrarianService {
	return &LibrarianService{runner: runner, catalog: catalog, store: store, booksIndex: booksIndex}
}

// Chat joins history and query into one prompt and lets the model use tools
// until it answers.
func (s *LibrarianService) Chat(ctx context.Context, query string, history []string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", &ValidationError{Message: "query is required"}
	}
	prompt := strings.Join(append(append([]string{}, history...), query), "\n")
	return s.runner.RunTools(ctx, librarianPrompt, librarianTools(), prompt, s.execute, librarianMaxSteps)
}

func librarianTools() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "search",
			Description: "Search the books index with an Elasticsearch query body.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"index":      {Type: genai.TypeString, Description: "Index name, normally 'books'."},
					"query_body": {Type: genai.TypeString, Description: "Elasticsearch query DSL as a JSON object string."},
				},
				Required: []string{"query_body"},
			},
		},
		{
			Name:        "search_google_books",
			Description: "Look up price, saleability and buy links on Google Books.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":  {Type: genai.TypeString, Description: "Book title."},
					"author": {Type: genai.TypeString, Description: "Author, if known."},
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        "list_indices",
			Description: "List the indices of the cluster.",
		},
		{
			Name:        "get_mappings",
			Description: "Return the field mappings of an index.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"index": {Type: genai.TypeString, Description: "Index name."},
				},
				Required: []string{"index"},
			},
		},
	}
}

func (s *LibrarianService) execute(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	switch name {
	case "search":
		return s.searchBooks(ctx, args)
	case "search_google_books":
		if s.store == nil {
			return nil, fmt.Errorf("Google Books is not configured")
		}
		title := stringArg(args, "title")
		if title == "" {
			return nil, fmt.Errorf("title is required")
		}
		offers, err := s.store.FindOffers(ctx, title, stringArg(args, "author"))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"results": offers}, nil
	case "list_indices":
		rows, err := s.catalog.ListIndices(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"indices": rows}, nil
	case "get_mappings":
		index := stringArg(args, "index")
		if index == "" {
			index = s.booksIndex
		}
		raw, err := s.catalog.GetMapping(ctx, index)
		if err != nil {
			return nil, err
		}
		var mapping map[string]interface{}
		if err := json.Unmarshal(raw, &mapping); err != nil {
			return nil, err
		}
		return map[string]interface{}{"mappings": mapping}, nil
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

// searchBooks always targets the books index and returns at most five hits.
func (s *LibrarianService) searchBooks(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	var body map[string]interface{}
	if raw := stringArg(args, "query_body"); raw != "" {
		if err := json.Unmarshal([]byte(stripCodeFences(raw)), &body); err != nil {
			return nil, fmt.Errorf("query_body is not valid JSON: %w", err)
		}
	}
	if len(body) == 0 {
		body = elastic.BooksTitleQuery(stringArg(args, "query"))
	}

	hits, err := s.catalog.Search(ctx, s.booksIndex, elastic.LimitSize(body, maxBookResults))
	if err != nil {
		return nil, err
	}

	results := make([]interface{}, 0, len(hits.Hits))
	for i, hit := range hits.Hits {
		if i == maxBookResults {
			break
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(hit, &decoded); err == nil {
			results = append(results, decoded)
		}
	}
	return map[string]interface{}{
		"total":   hits.Total,
		"results": results,
	}, nil
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
