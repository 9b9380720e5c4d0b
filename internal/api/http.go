package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/victornm/livequiz/internal/auth"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

const (
	defaultTopSize = 10
	defaultRadius  = 5
	qrSize         = 320
)

func (a *API) registerRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1", a.authenticate)

	v1.POST("/lobby", a.createLobby)
	v1.GET("/lobby/random", a.randomLobby)
	v1.GET("/lobby/:code", a.lobbyInfo)
	v1.DELETE("/lobby/:code", a.deleteLobby)
	v1.POST("/lobby/join/:code", a.joinLobby)
	v1.POST("/lobby/leave/:code", a.leaveLobby)
	v1.POST("/lobby/:code/kick/:accountId", a.kickPlayer)
	v1.GET("/lobby/:code/players", a.lobbyPlayers)
	v1.PUT("/lobby/:code/max-players", a.setMaxPlayers)
	v1.PUT("/lobby/:code/random", a.setRandomAccess)
	v1.GET("/lobby/:code/changes", a.lobbyChanges)
	v1.GET("/lobby/:code/qr", a.lobbyQR)
	v1.POST("/lobby/:code/start", a.startGame)

	v1.GET("/playerinfo", a.playerInfo)

	v1.GET("/game/history/:page", a.gameHistory)
	v1.GET("/game/leaderboard/top", a.leaderboardTop)
	v1.GET("/game/leaderboard/relative", a.leaderboardRelative)
	v1.GET("/game/:id", a.gameStatus)
	v1.GET("/game/:id/tasks/current", a.currentTask)
	v1.POST("/game/:id/tasks/answer", a.submitAnswer)
	v1.POST("/game/:id/ping", a.ping)

	v1.GET("/scores/:id/total", a.totalResults)
	v1.GET("/scores/:id/total/changes", a.resultsChanged)
	v1.GET("/scores/:id/personal", a.personalResults)
	v1.GET("/scores/:id/personal/:username", a.personalResults)

	v1.GET("/player/rating", a.ownRating)
	v1.GET("/player/:username/rating", a.userRating)
}

const accountKey = "account"

// authenticate resolves the bearer token into the caller's account. Every route
// needs a caller identity.
func (a *API) authenticate(c *gin.Context) {
	acc, err := a.auth.VerifyHeader(c.GetHeader("Authorization"))
	if err != nil {
		abort(c, err)
		return
	}

	c.Set(accountKey, acc)
	c.Request = c.Request.WithContext(auth.WithAccount(c.Request.Context(), acc))
	c.Next()
}

func account(c *gin.Context) domain.Account {
	acc, _ := c.MustGet(accountKey).(domain.Account)
	return acc
}

func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func (a *API) createLobby(c *gin.Context) {
	code, err := a.lobby.CreateLobby(c.Request.Context(), account(c))
	if err != nil {
		abort(c, err)
		return
	}

	c.String(http.StatusCreated, code)
}

func (a *API) deleteLobby(c *gin.Context) {
	c.JSON(http.StatusOK, a.lobby.DeleteLobby(c.Request.Context(), c.Param("code"), account(c)))
}

func (a *API) joinLobby(c *gin.Context) {
	c.JSON(http.StatusOK, a.lobby.Join(c.Request.Context(), c.Param("code"), account(c)))
}

func (a *API) leaveLobby(c *gin.Context) {
	c.JSON(http.StatusOK, a.lobby.Leave(c.Request.Context(), c.Param("code"), account(c)))
}

func (a *API) kickPlayer(c *gin.Context) {
	c.JSON(http.StatusOK, a.lobby.RemovePlayer(c.Request.Context(), c.Param("code"), c.Param("accountId"), account(c)))
}

func (a *API) lobbyInfo(c *gin.Context) {
	code := c.Param("code")

	h, ok := a.lobby.Host(code)
	if !ok {
		abort(c, errors.NotFound("lobby not found: code=%s", code))
		return
	}
	maxPlayers, _ := a.lobby.MaxPlayers(code)

	c.JSON(http.StatusOK, LobbyInfo{
		Code:         code,
		Host:         h.Name,
		IsHost:       a.lobby.IsHost(code, account(c).ID),
		MaxPlayers:   maxPlayers,
		IsFull:       a.lobby.IsFull(code),
		AllowsRandom: a.lobby.AllowsRandom(code),
	})
}

func (a *API) lobbyPlayers(c *gin.Context) {
	players, ok := a.lobby.Players(c.Param("code"))
	if !ok {
		abort(c, errors.NotFound("lobby not found: code=%s", c.Param("code")))
		return
	}

	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	c.JSON(http.StatusOK, names)
}

func (a *API) setMaxPlayers(c *gin.Context) {
	var req struct {
		MaxPlayers int `json:"maxPlayers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("%v", err)))
		return
	}

	c.JSON(http.StatusOK, a.lobby.SetMaxPlayers(c.Request.Context(), c.Param("code"), req.MaxPlayers, account(c)))
}

func (a *API) setRandomAccess(c *gin.Context) {
	var req struct {
		Allow *bool `json:"allow" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("%v", err)))
		return
	}

	c.JSON(http.StatusOK, a.lobby.SetRandomAccess(c.Request.Context(), c.Param("code"), *req.Allow, account(c)))
}

func (a *API) randomLobby(c *gin.Context) {
	code, ok := a.lobby.RandomLobby()
	if !ok {
		abort(c, errors.NotFound("no open lobby"))
		return
	}

	c.String(http.StatusOK, code)
}

func (a *API) lobbyChanges(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hasChanged": a.lobby.HasAnythingChanged(c.Param("code"), account(c).ID)})
}

func (a *API) lobbyQR(c *gin.Context) {
	code := c.Param("code")
	if !a.lobby.Exists(code) {
		abort(c, errors.NotFound("lobby not found: code=%s", code))
		return
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s/api/v1/lobby/join/%s", a.publicURL, code), qrcode.Medium, qrSize)
	if err != nil {
		abort(c, errors.Internal(fmt.Errorf("qr: %w", err)))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (a *API) startGame(c *gin.Context) {
	id, err := a.game.StartFromLobby(c.Request.Context(), c.Param("code"), account(c))
	if err != nil {
		e := errors.Convert(err)
		if e.Code != errors.CodeInternal && e.Code != errors.CodeUnauthenticated {
			e = errors.New(errors.CodeInvalidArgument, errors.WithMessagef("%s", e.Message), errors.WithCause(err))
		}
		abort(c, e)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"gameId": id})
}

func (a *API) playerInfo(c *gin.Context) {
	acc := account(c)

	var info PlayerInfo
	if code, ok := a.lobby.LobbyForPlayer(acc.ID); ok {
		info.LobbyCode = code
	}
	if g, ok := a.game.PlayerInfo(acc.ID); ok {
		info.LobbyCode = g.LobbyCode
		info.GameID = g.GameID
	}

	c.JSON(http.StatusOK, info)
}

func (a *API) gameStatus(c *gin.Context) {
	ref := c.Param("id")

	// An ended game no longer exists but still reports whether it finished.
	finished, _ := a.game.HasFinished(c.Request.Context(), ref)
	count, exists := a.game.TaskCount(ref)
	c.JSON(http.StatusOK, GameStatus{Exists: exists, HasFinished: finished, TaskCount: count})
}

func (a *API) currentTask(c *gin.Context) {
	v, err := a.game.CurrentTask(c.Request.Context(), c.Param("id"), account(c))
	if errors.Is(err, errors.CodeNotFound) {
		c.JSON(http.StatusOK, FinishedView{HasFinished: true, HasGameFinished: true})
		return
	}
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, taskView(v))
}

func (a *API) submitAnswer(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	score, err := a.game.SubmitJSON(c.Request.Context(), c.Param("id"), account(c), body)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": score})
}

func (a *API) ping(c *gin.Context) {
	if err := a.game.NoteInteraction(c.Request.Context(), c.Param("id"), account(c)); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) totalResults(c *gin.Context) {
	entries, err := a.results.Total(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, resultEntries(entries))
}

func (a *API) personalResults(c *gin.Context) {
	who := c.Param("username")
	if who == "" {
		who = account(c).ID
	}

	res, err := a.results.Personal(c.Request.Context(), c.Param("id"), who)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, taskResults(res))
}

func (a *API) resultsChanged(c *gin.Context) {
	changed, known := a.results.Changed(c.Request.Context(), c.Param("id"), account(c).ID)
	if !known {
		c.JSON(http.StatusOK, gin.H{"gameExists": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"haveResultsChanged": changed})
}

func (a *API) gameHistory(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid page %q", c.Param("page"))))
		return
	}
	if page < 1 {
		c.Redirect(http.StatusFound, "/api/v1/game/history/1")
		return
	}

	h, err := a.history.History(c.Request.Context(), page-1)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, historyEntries(h))
}

func (a *API) ownRating(c *gin.Context) {
	a.rating(c, account(c).Name, "hasRating")
}

func (a *API) userRating(c *gin.Context) {
	a.rating(c, c.Param("username"), "exists")
}

func (a *API) rating(c *gin.Context, username, missingKey string) {
	r, err := a.lb.Rating(c.Request.Context(), username)
	if errors.Is(err, errors.CodeNotFound) {
		c.JSON(http.StatusOK, gin.H{missingKey: false})
		return
	}
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rating": r.Rating, "rank": r.Rank})
}

func (a *API) leaderboardTop(c *gin.Context) {
	n, err := intQuery(c, "n", defaultTopSize)
	if err != nil {
		abort(c, err)
		return
	}

	top, err := a.lb.Top(c.Request.Context(), n)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, ratings(top))
}

func (a *API) leaderboardRelative(c *gin.Context) {
	radius, err := intQuery(c, "radius", defaultRadius)
	if err != nil {
		abort(c, err)
		return
	}

	rel, err := a.lb.Relative(c.Request.Context(), account(c).Name, radius)
	if errors.Is(err, errors.CodeNotFound) {
		c.JSON(http.StatusOK, []Rating{})
		return
	}
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, ratings(rel))
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	s, ok := c.GetQuery(key)
	if !ok {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid %s %q", key, s))
	}
	return n, nil
}
