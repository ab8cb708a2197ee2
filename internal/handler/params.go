package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

const (
	defaultPageNumber = 1
	defaultPageSize   = 10
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// pageFromQuery reads page_number and page_size. Range checks happen in the services.
func pageFromQuery(c *gin.Context) (repository.Page, bool) {
	page := repository.Page{Number: defaultPageNumber, Size: defaultPageSize}
	for name, dst := range map[string]*int{"page_number": &page.Number, "page_size": &page.Size} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid "+name)
			return page, false
		}
		*dst = n
	}
	return page, true
}

func listResponse[T any](items []T, total int64) model.ListResponse[T] {
	return model.ListResponse[T]{Items: items, TotalCount: total}
}
