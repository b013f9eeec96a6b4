package mdprofile

import (
	"context"
	"errors"

	"alertx/internal/app/domains/entity/etprofile"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/repo/rpprofile"
	"alertx/internal/app/pkg/errorx"
)

// ProfileModule 档案模块
type ProfileModule struct {
	profileRepo rpprofile.ProfileRepository
}

// NewProfileModule 创建档案模块
func NewProfileModule(profileRepo rpprofile.ProfileRepository) *ProfileModule {
	return &ProfileModule{
		profileRepo: profileRepo,
	}
}

// Lookup 查询档案，不存在返回 nil, nil
func (m *ProfileModule) Lookup(ctx context.Context, requesterID string) (*etprofile.Profile, error) {
	p, err := m.profileRepo.GetByRequester(ctx, requesterID)
	if err != nil {
		if errors.Is(err, errorx.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// FillPatient 请求未带患者背景时用档案补齐，返回新的输入，原输入不变
func FillPatient(in *ettriage.SymptomInput, profile *etprofile.Profile) *ettriage.SymptomInput {
	if in == nil || in.Patient != nil || profile == nil {
		return in
	}
	cp := *in
	cp.Patient = profile.PatientContext()
	return &cp
}

// Save 新建或更新档案
func (m *ProfileModule) Save(ctx context.Context, profile *etprofile.Profile) error {
	return m.profileRepo.Save(ctx, profile)
}
