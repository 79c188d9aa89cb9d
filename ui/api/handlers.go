package api

import (
	"bytes"
	"math/big"
	"strconv"
	"time"

	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/history"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"github.com/gofiber/fiber/v2"
	"github.com/yeqown/go-qrcode"
)

type chainInfo struct {
	*chains.Params
	Selected bool `json:"selected"`
}

type chainRequest struct {
	Chain string `json:"chain"`
}

type accountRequest struct {
	Address string `json:"address"`
}

type accountResponse struct {
	Address string   `json:"address"`
	Balance *big.Int `json:"balance"`
	// BalanceText is the balance formatted in the chain's token.
	BalanceText string `json:"balanceText,omitempty"`
}

type rateResponse struct {
	Source     string    `json:"source"`
	Pair       string    `json:"pair"`
	Rate       *float64  `json:"rate"`
	LastUpdate time.Time `json:"lastUpdate,omitempty"`
}

type sourceRequest struct {
	Source string `json:"source"`
}

type logLevelRequest struct {
	Level string `json:"level"`
}

type reviewRequest struct {
	ReturnFundsAgreed bool `json:"returnFundsAgreed"`
}

type stepRequest struct {
	Step txprocess.Step `json:"step"`
}

type formResponse struct {
	Draft     *tip.FormDraft       `json:"draft"`
	Errors    tip.ValidationErrors `json:"errors,omitempty"`
	LastSaved string               `json:"lastSaved,omitempty"`
}

type estimateResponse struct {
	Deposits  *big.Int `json:"deposits"`
	Fees      *big.Int `json:"fees"`
	Total     *big.Int `json:"total"`
	TotalText string   `json:"totalText"`
	// Note says why the estimate is withheld.
	Note string `json:"note,omitempty"`
}

type referendaResponse struct {
	Referenda []*history.Referendum `json:"referenda"`
	Total     int                   `json:"total"`
}

func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("OK")
}

func (s *Server) getChains(c *fiber.Ctx) error {
	selected := s.mgr.Chain().Type
	var infos []chainInfo
	for _, chain := range chains.Supported() {
		params, err := chains.Lookup(chain)
		if err != nil {
			return err
		}
		infos = append(infos, chainInfo{Params: params, Selected: chain == selected})
	}
	return c.JSON(infos)
}

func (s *Server) putChain(c *fiber.Ctx) error {
	var req chainRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err.Error())
	}
	chain, err := chains.ParseChain(req.Chain)
	if err != nil {
		return badRequest(err.Error())
	}
	if err := s.mgr.SetChain(chain); err != nil {
		return err
	}
	return c.JSON(s.mgr.Chain())
}

func (s *Server) account(c *fiber.Ctx) accountResponse {
	resp := accountResponse{Address: s.mgr.Account()}
	if resp.Address == "" {
		return resp
	}
	balance, err := s.mgr.SignerBalance(c.UserContext())
	if err != nil {
		log.Warnf("Unable to fetch balance of %s: %v", resp.Address, err)
		return resp
	}
	resp.Balance = balance
	resp.BalanceText = s.mgr.Chain().FormatToken(balance)
	return resp
}

func (s *Server) getAccount(c *fiber.Ctx) error {
	return c.JSON(s.account(c))
}

func (s *Server) putAccount(c *fiber.Ctx) error {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err.Error())
	}
	if err := s.mgr.SetAccount(req.Address); err != nil {
		return err
	}
	return c.JSON(s.account(c))
}

// getAccountQR renders the selected account as a PNG QR code so it can be
// topped up from a mobile wallet.
func (s *Server) getAccountQR(c *fiber.Ctx) error {
	address := s.mgr.Account()
	if address == "" {
		return APIError{Code: fiber.StatusNotFound, Message: "no account selected"}
	}

	qrCode, err := qrcode.New(address, qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT))
	if err != nil {
		log.Errorf("Error generating address qrCode: %v", err)
		return err
	}

	var buff bytes.Buffer
	if err := qrCode.SaveTo(&buff); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buff.Bytes())
}

func (s *Server) getRate(c *fiber.Ctx) error {
	resp := rateResponse{
		Source: s.mgr.RateSource.Name(),
		Pair:   s.mgr.RateSource.Pair(),
	}
	if ticker := s.mgr.RateSource.Ticker(); ticker != nil {
		resp.Rate = &ticker.Rate
		resp.LastUpdate = ticker.LastUpdate
	}
	return c.JSON(resp)
}

func (s *Server) putRateSource(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err.Error())
	}
	if err := s.mgr.SetRateSource(req.Source); err != nil {
		return badRequest(err.Error())
	}
	return s.getRate(c)
}

func (s *Server) putLogLevel(c *fiber.Ctx) error {
	var req logLevelRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(err.Error())
	}
	if err := s.mgr.SetLogLevels(req.Level); err != nil {
		return badRequest(err.Error())
	}
	return c.JSON(logLevelRequest{Level: s.mgr.GetLogLevels()})
}

func (s *Server) form() formResponse {
	draft := s.mgr.Draft()
	_, errs := tip.Validate(draft, s.mgr.Chain())
	return formResponse{
		Draft:     draft,
		Errors:    errs,
		LastSaved: s.mgr.Forms.LastSavedAgo(),
	}
}

func (s *Server) getForm(c *fiber.Ctx) error {
	return c.JSON(s.form())
}

func (s *Server) putForm(c *fiber.Ctx) error {
	var draft tip.FormDraft
	if err := c.BodyParser(&draft); err != nil {
		return badRequest(err.Error())
	}
	if _, err := s.mgr.SaveDraft(&draft); err != nil {
		return err
	}
	return c.JSON(s.form())
}

func (s *Server) deleteForm(c *fiber.Ctx) error {
	if err := s.mgr.ClearDraft(); err != nil {
		return err
	}
	return c.JSON(s.form())
}

func (s *Server) getOverview(c *fiber.Ctx) error {
	return c.JSON(s.mgr.Overview(c.UserContext()))
}

func (s *Server) getPreview(c *fiber.Ctx) error {
	markdown, html := s.mgr.Preview(c.UserContext())
	if c.Query("format") == "html" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(html)
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(markdown)
}

func (s *Server) estimate() estimateResponse {
	cost, note := s.mgr.EstimateWithNote()
	if cost == nil {
		return estimateResponse{Note: note}
	}
	total := cost.Total()
	return estimateResponse{
		Deposits:  cost.Deposits,
		Fees:      cost.Fees,
		Total:     total,
		TotalText: s.mgr.Chain().FormatToken(total),
	}
}

// getEstimate reports an empty estimate while it is being calculated.
func (s *Server) getEstimate(c *fiber.Ctx) error {
	return c.JSON(s.estimate())
}

func (s *Server) postFees(c *fiber.Ctx) error {
	if _, err := s.mgr.EstimateFees(c.UserContext()); err != nil {
		return s.withFields(err)
	}
	return c.JSON(s.estimate())
}

func (s *Server) postReview(c *fiber.Ctx) error {
	var req reviewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(err.Error())
		}
	}
	step, err := s.mgr.Review(c.UserContext(), req.ReturnFundsAgreed)
	if err != nil {
		return s.withFields(err)
	}
	return c.JSON(fiber.Map{"step": step, "submit": s.mgr.SubmitState()})
}

func (s *Server) parseStep(c *fiber.Ctx) (txprocess.Step, error) {
	req := stepRequest{Step: txprocess.StepCreation}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", badRequest(err.Error())
		}
	}
	switch req.Step {
	case txprocess.StepCreation, txprocess.StepDecisionDeposit:
		return req.Step, nil
	default:
		return "", badRequest("unknown step " + strconv.Quote(string(req.Step)))
	}
}

func (s *Server) postSubmit(c *fiber.Ctx) error {
	step, err := s.parseStep(c)
	if err != nil {
		return err
	}
	if err := s.mgr.Submit(step); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"step": s.mgr.ActiveStep()})
}

func (s *Server) postDismiss(c *fiber.Ctx) error {
	step, err := s.parseStep(c)
	if err != nil {
		return err
	}
	if err := s.mgr.Dismiss(step); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"step": s.mgr.ActiveStep()})
}

func (s *Server) getStep(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"step": s.mgr.ActiveStep()})
}

// getEvents long polls for the next transaction step notification. It
// answers 204 when none arrived within ?timeout= milliseconds.
func (s *Server) getEvents(c *fiber.Ctx) error {
	wait := time.Duration(c.QueryInt("timeout", 10000)) * time.Millisecond
	if wait <= 0 || wait > maxEventWait {
		wait = maxEventWait
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case notification, ok := <-s.steps.StepNotifChan():
		if !ok {
			return fiber.ErrServiceUnavailable
		}
		return c.JSON(notification)
	case <-timer.C:
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func (s *Server) getReferenda(c *fiber.Ctx) error {
	var chain chains.ChainType
	if raw := c.Query("chain"); raw != "" {
		parsed, err := chains.ParseChain(raw)
		if err != nil {
			return badRequest(err.Error())
		}
		chain = parsed
	}

	offset, limit := c.QueryInt("offset"), c.QueryInt("limit", 20)
	if offset < 0 || limit < 0 {
		return badRequest("offset and limit must not be negative")
	}
	newest := c.QueryBool("newest", true)

	referenda, err := s.mgr.History.List(chain, int32(offset), int32(limit), newest)
	if err != nil {
		return err
	}
	total, err := s.mgr.History.Count(chain)
	if err != nil {
		return err
	}
	return c.JSON(referendaResponse{Referenda: referenda, Total: total})
}

func (s *Server) getReferendum(c *fiber.Ctx) error {
	chain, err := chains.ParseChain(c.Params("chain"))
	if err != nil {
		return badRequest(err.Error())
	}
	index, err := strconv.ParseUint(c.Params("index"), 10, 32)
	if err != nil {
		return badRequest("invalid referendum index")
	}
	referendum, err := s.mgr.History.Get(chain, uint32(index))
	if err != nil {
		return err
	}
	return c.JSON(referendum)
}

// withFields attaches the inline form errors to a rejected wizard step.
func (s *Server) withFields(err error) error {
	if statusOf(err) != fiber.StatusBadRequest {
		return err
	}
	_, errs := tip.Validate(s.mgr.Draft(), s.mgr.Chain())
	return APIError{Code: fiber.StatusBadRequest, Message: err.Error(), Fields: errs}
}
