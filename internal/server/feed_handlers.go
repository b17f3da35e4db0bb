package server

import (
	"retouchly/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
// @Summary List the community feed
// @Description Public activities only. Signed-in viewers also get a per-item liked flag.
// @Tags feed
// @Produce json
// @Param sort query string false "newest | most_liked | most_downloaded" default(newest)
// @Param kind query string false "Activity kind filter"
// @Param limit query int false "Page size (1-100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.FeedPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return respondError(c, err)
	}

	feed, err := s.feed.ListPublicFeed(c.UserContext(), service.FeedRequest{
		Sort:     c.Query("sort"),
		Kind:     c.Query("kind"),
		Limit:    page.Limit,
		Offset:   page.Offset,
		ViewerID: currentUser(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed)
}
