package refcache

import (
	"context"
	"time"

	"abiScope/internal/model"
)

type fakeProvider struct {
	tokens    map[string]model.Token
	contracts map[string]model.ContractFacts
	err       error

	tokenCalls    int
	contractCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		tokens:    make(map[string]model.Token),
		contracts: make(map[string]model.ContractFacts),
	}
}

func (p *fakeProvider) calls() int {
	return p.tokenCalls + p.contractCalls
}

func (p *fakeProvider) LookupToken(_ context.Context, address string) (*model.Token, error) {
	p.tokenCalls++
	if p.err != nil {
		return nil, p.err
	}
	if token, ok := p.tokens[address]; ok {
		return &token, nil
	}
	return nil, nil
}

func (p *fakeProvider) LookupTokens(_ context.Context, addresses []string) ([]model.Token, error) {
	p.tokenCalls++
	if p.err != nil {
		return nil, p.err
	}
	var out []model.Token
	for _, address := range addresses {
		if token, ok := p.tokens[address]; ok {
			out = append(out, token)
		}
	}
	return out, nil
}

func (p *fakeProvider) LookupContract(_ context.Context, address string) (*model.ContractFacts, error) {
	p.contractCalls++
	if p.err != nil {
		return nil, p.err
	}
	if facts, ok := p.contracts[address]; ok {
		return &facts, nil
	}
	return nil, nil
}

func (p *fakeProvider) LookupContracts(_ context.Context, addresses []string) ([]model.ContractFacts, error) {
	p.contractCalls++
	if p.err != nil {
		return nil, p.err
	}
	var out []model.ContractFacts
	for _, address := range addresses {
		if facts, ok := p.contracts[address]; ok {
			out = append(out, facts)
		}
	}
	return out, nil
}

type fakeRegistry struct {
	abis  map[string]model.ABI
	err   error
	calls int
}

func (r *fakeRegistry) Enabled() bool {
	return r != nil
}

func (r *fakeRegistry) GetABI(_ context.Context, address string) (model.ABI, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.abis[address], nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
