package service

import (
	"context"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/repository"
)

type memberService struct {
	members repository.MemberRepo
}

func NewMemberService(members repository.MemberRepo) MemberService {
	return &memberService{members: members}
}

func (s *memberService) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	return s.members.GetByID(ctx, id)
}

func (s *memberService) List(ctx context.Context) ([]*domain.Member, error) {
	return s.members.List(ctx)
}
