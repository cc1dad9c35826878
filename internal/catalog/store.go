package catalog

import (
	"context"
	"sync"
)

// API is the registry surface the Store drives.
type API interface {
	CreateService(ctx context.Context, payload any) (ServiceResponse, error)
	CreateServiceSpec(ctx context.Context, payload any) (ServiceResponse, error)
	UpdateServiceSpec(ctx context.Context, payload any) (ServiceResponse, error)
	EditService(ctx context.Context, id string, payload any) (ServiceResponse, error)
	UpdateServiceSpecStatus(ctx context.Context, payload any) (ServiceResponse, error)
	FetchServices(ctx context.Context, page, limit int) ([]Service, error)
	FetchServicesByProvider(ctx context.Context, providerID string, page int) ([]Service, error)
	FindServiceSpecsByService(ctx context.Context, serviceID string) ([]ServiceSpecification, error)
	FindService(ctx context.Context, id string) (Service, error)
	FindServiceSpec(ctx context.Context, id string) (ServiceSpecification, error)
}

// State is a copy of everything the Store holds. Nil pointers were never loaded.
type State struct {
	Services                []Service
	Service                 *Service
	ServiceSpecification    *ServiceSpecification
	ServiceSpecifications   []ServiceSpecification
	CreateServiceResponse   *ServiceResponse
	UpdateServiceResponse   *ServiceResponse
	StatusUpdateResponse    *ServiceResponse
	CreateSpecificationResp *ServiceResponse
}

// Store keeps one session's last answer of each registry call. Errors leave
// state untouched.
type Store struct {
	api API

	mu    sync.RWMutex
	state State
}

func NewStore(api API) *Store {
	return &Store{api: api}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Services = append([]Service(nil), st.Services...)
	st.ServiceSpecifications = append([]ServiceSpecification(nil), st.ServiceSpecifications...)
	return st
}

func (s *Store) set(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
}

func (s *Store) CreateService(ctx context.Context, payload any) (ServiceResponse, error) {
	resp, err := s.api.CreateService(ctx, payload)
	if err != nil {
		return ServiceResponse{}, err
	}
	s.set(func(st *State) { st.CreateServiceResponse = &resp })
	return resp, nil
}

func (s *Store) CreateServiceSpec(ctx context.Context, payload any) (ServiceResponse, error) {
	resp, err := s.api.CreateServiceSpec(ctx, payload)
	if err != nil {
		return ServiceResponse{}, err
	}
	s.set(func(st *State) { st.CreateSpecificationResp = &resp })
	return resp, nil
}

// UpdateServiceSpec shares its response slot with CreateServiceSpec.
func (s *Store) UpdateServiceSpec(ctx context.Context, payload any) (ServiceResponse, error) {
	resp, err := s.api.UpdateServiceSpec(ctx, payload)
	if err != nil {
		return ServiceResponse{}, err
	}
	s.set(func(st *State) { st.CreateSpecificationResp = &resp })
	return resp, nil
}

func (s *Store) EditService(ctx context.Context, id string, payload any) (ServiceResponse, error) {
	resp, err := s.api.EditService(ctx, id, payload)
	if err != nil {
		return ServiceResponse{}, err
	}
	s.set(func(st *State) { st.UpdateServiceResponse = &resp })
	return resp, nil
}

func (s *Store) UpdateServiceSpecStatus(ctx context.Context, payload any) (ServiceResponse, error) {
	resp, err := s.api.UpdateServiceSpecStatus(ctx, payload)
	if err != nil {
		return ServiceResponse{}, err
	}
	s.set(func(st *State) { st.StatusUpdateResponse = &resp })
	return resp, nil
}

func (s *Store) FetchServices(ctx context.Context, page, limit int) ([]Service, error) {
	list, err := s.api.FetchServices(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	s.set(func(st *State) { st.Services = list })
	return append([]Service(nil), list...), nil
}

// FetchServicesByProvider replaces the same list FetchServices fills.
func (s *Store) FetchServicesByProvider(ctx context.Context, providerID string, page int) ([]Service, error) {
	list, err := s.api.FetchServicesByProvider(ctx, providerID, page)
	if err != nil {
		return nil, err
	}
	s.set(func(st *State) { st.Services = list })
	return append([]Service(nil), list...), nil
}

func (s *Store) FindServiceSpecsByService(ctx context.Context, serviceID string) ([]ServiceSpecification, error) {
	specs, err := s.api.FindServiceSpecsByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	s.set(func(st *State) { st.ServiceSpecifications = specs })
	return append([]ServiceSpecification(nil), specs...), nil
}

func (s *Store) FindService(ctx context.Context, id string) (Service, error) {
	svc, err := s.api.FindService(ctx, id)
	if err != nil {
		return Service{}, err
	}
	s.set(func(st *State) { st.Service = &svc })
	return svc, nil
}

func (s *Store) FindServiceSpec(ctx context.Context, id string) (ServiceSpecification, error) {
	spec, err := s.api.FindServiceSpec(ctx, id)
	if err != nil {
		return ServiceSpecification{}, err
	}
	s.set(func(st *State) { st.ServiceSpecification = &spec })
	return spec, nil
}
