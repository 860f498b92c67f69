package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"shoprank/internal/catalog"
	"shoprank/internal/repository"
)

type productResponse struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	BrandID   int64       `json:"brandId"`
	Price     json.Number `json:"price"`
	Stock     int64       `json:"stock"`
	LikeCount int64       `json:"likeCount"`
	Rank      *int64      `json:"rank,omitempty"`
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid product id")
		return
	}

	var userID *int64
	if v := r.Header.Get("X-User-Id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			userID = &n
		}
	}

	detail, err := s.products.FindProductByID(r.Context(), id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to load product")
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "product not found")
		return
	}

	json.NewEncoder(w).Encode(productResponse{
		ProductID: detail.ProductID,
		Name:      detail.Name,
		BrandID:   detail.BrandID,
		Price:     json.Number(detail.Price.StringFixed(2)),
		Stock:     detail.Stock,
		LikeCount: detail.LikeCount,
		Rank:      detail.Rank,
	})
}

type productListResponse struct {
	Items      []productResponse `json:"items"`
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	Size       int               `json:"size"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, size := parsePageSize(r)

	q := repository.ProductQuery{Page: page, Size: size, Sort: r.URL.Query().Get("sort")}
	if v := r.URL.Query().Get("brandId"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid brandId")
			return
		}
		q.BrandID = &n
	}

	result, err := s.products.FindProducts(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to load products")
		return
	}

	items := make([]productResponse, len(result.Items))
	for i, item := range result.Items {
		items[i] = summaryResponse(item)
	}
	json.NewEncoder(w).Encode(productListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Page:       result.Page,
		Size:       result.Size,
	})
}

func summaryResponse(item catalog.ProductSummary) productResponse {
	return productResponse{
		ProductID: item.ProductID,
		Name:      item.Name,
		BrandID:   item.BrandID,
		Price:     json.Number(item.Price.StringFixed(2)),
		Stock:     item.Stock,
		LikeCount: item.LikeCount,
	}
}
