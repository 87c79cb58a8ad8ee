package fundd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fundflow/native/crowdfund"
	"fundflow/native/stream"
)

func (s *Server) handleCreateLedger(w http.ResponseWriter, r *http.Request) {
	var req createLedgerRequest
	if err := s.decode(w, r, schemaCreateLedger, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	goal, err := parseRat("goal", req.Goal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var policy crowdfund.Policy
	if req.Policy != "" {
		if policy, err = crowdfund.ParsePolicy(req.Policy); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	snap, err := s.registry.CreateLedger(goal, policy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/ledgers/"+snap.ID)
	s.writeJSON(w, http.StatusCreated, ledgerResponseFrom(snap))
}

func (s *Server) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"ledgers": s.registry.LedgerIDs()})
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	snap, err := s.registry.Ledger(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSnapshot(w, r, ledgerResponseFrom(snap))
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req contributionRequest
	if err := s.decode(w, r, schemaContribution, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseRat("amount", req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	receipt, err := s.registry.Contribute(id, req.Contributor, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, receiptResponse{
		LedgerID: id,
		Total:    crowdfund.FormatExact(receipt.Total),
		Funded:   receipt.Funded,
	})
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req distributionRequest
	if err := s.decode(w, r, schemaDistribution, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cost, err := parseRat("cost", req.Cost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payouts, err := s.registry.Distribute(id, cost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, distributionResponseFrom(id, cost, payouts, s.places))
}

func (s *Server) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	var req createStreamRequest
	if err := s.decode(w, r, schemaCreateStream, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	deposit, err := parseUnits("deposit", req.Deposit, stream.ErrInvalidDeposit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := nonNegativeBlock("startBlock", req.StartBlock)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	duration, err := durationBlocks(req.DurationBlocks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.registry.CreateStream(req.Recipient, deposit, start, duration)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/streams/"+snap.ID)
	s.writeJSON(w, http.StatusCreated, streamResponseFrom(snap, nil))
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"streams": s.registry.StreamIDs()})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	block, err := parseBlockQuery(r.URL.Query().Get("block"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.registry.Stream(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSnapshot(w, r, streamResponseFrom(snap, block))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req withdrawalRequest
	if err := s.decode(w, r, schemaWithdrawal, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	block, err := nonNegativeBlock("block", req.Block)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseUnits("amount", req.Amount, stream.ErrInvalidAmount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	withdrawn, err := s.registry.Withdraw(id, block, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, withdrawalResponse{
		StreamID:  id,
		Block:     block,
		Amount:    amount.Dec(),
		Withdrawn: withdrawn.Dec(),
	})
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req topUpRequest
	if err := s.decode(w, r, schemaTopUp, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	block, err := nonNegativeBlock("block", req.Block)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	blocks, err := durationBlocks(req.Blocks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deposit := "0"
	if req.Deposit != "" {
		deposit = req.Deposit
	}
	amount, err := parseUnits("deposit", deposit, stream.ErrInvalidDeposit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.registry.TopUp(id, block, amount, blocks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, streamResponseFrom(snap, &block))
}
