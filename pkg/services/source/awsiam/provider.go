package awsiam

import (
	"context"
	"fmt"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/source"
)

const Platform = "aws"

// Provider reads IAM users and roles together with their attached and inline
// policy documents. Not safe for concurrent FetchIdentities calls because of
// the managed policy cache.
type Provider struct {
	client *iam.Client
	// managed policies are commonly attached to many identities, so resolved
	// documents are cached by ARN for the lifetime of one provider.
	managed map[string]domain.PermissionDocument
}

// Factory builds the AWS provider from a connection profile. Recognized
// profile keys: aws_profile, region.
func Factory(ctx context.Context, profile registry.Profile) (source.Provider, error) {
	awsCfg, err := LoadConfig(ctx, profile.Get("aws_profile"), profile.Get("region"))
	if err != nil {
		return nil, err
	}
	return NewProvider(iam.NewFromConfig(*awsCfg)), nil
}

func NewProvider(client *iam.Client) *Provider {
	return &Provider{
		client:  client,
		managed: make(map[string]domain.PermissionDocument),
	}
}

func (p *Provider) Platform() string { return Platform }

// FetchIdentities walks every IAM user and role in the account. Policy fetch
// failures degrade to log warnings so one broken policy does not lose the
// whole snapshot.
func (p *Provider) FetchIdentities(ctx context.Context) ([]domain.IdentitySnapshot, error) {
	users, err := p.fetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := p.fetchRoles(ctx)
	if err != nil {
		return nil, err
	}
	return append(users, roles...), nil
}

func (p *Provider) fetchUsers(ctx context.Context) ([]domain.IdentitySnapshot, error) {
	logger := zerolog.Ctx(ctx)

	var snaps []domain.IdentitySnapshot
	var marker *string
	for {
		out, err := p.client.ListUsers(ctx, &iam.ListUsersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, u := range out.Users {
			userName := awssdk.ToString(u.UserName)
			snap := domain.IdentitySnapshot{
				ID:           awssdk.ToString(u.UserId),
				Name:         userName,
				Type:         domain.IdentityTypeUser,
				Platform:     Platform,
				CreatedAt:    awssdk.ToTime(u.CreateDate),
				LastActivity: u.PasswordLastUsed,
				Metadata:     map[string]string{"arn": awssdk.ToString(u.Arn)},
			}
			docs, err := p.userPolicies(ctx, userName)
			if err != nil {
				logger.Warn().Err(err).Str("user", userName).Msg("failed to load user policies")
			}
			snap.Policies = docs
			snaps = append(snaps, snap)
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}
	return snaps, nil
}

func (p *Provider) fetchRoles(ctx context.Context) ([]domain.IdentitySnapshot, error) {
	logger := zerolog.Ctx(ctx)

	var snaps []domain.IdentitySnapshot
	var marker *string
	for {
		out, err := p.client.ListRoles(ctx, &iam.ListRolesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		for _, r := range out.Roles {
			// Service-linked roles are AWS managed and not actionable.
			if strings.HasPrefix(awssdk.ToString(r.Path), "/aws-service-role/") {
				continue
			}

			roleName := awssdk.ToString(r.RoleName)
			snap := domain.IdentitySnapshot{
				ID:        awssdk.ToString(r.RoleId),
				Name:      roleName,
				Type:      domain.IdentityTypeRole,
				Platform:  Platform,
				CreatedAt: awssdk.ToTime(r.CreateDate),
				Metadata:  map[string]string{"arn": awssdk.ToString(r.Arn)},
			}

			// ListRoles leaves RoleLastUsed empty; GetRole fills it.
			snap.LastActivity = p.roleLastUsed(ctx, roleName)

			docs, err := p.rolePolicies(ctx, roleName)
			if err != nil {
				logger.Warn().Err(err).Str("role", roleName).Msg("failed to load role policies")
			}
			snap.Policies = docs
			snaps = append(snaps, snap)
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}
	return snaps, nil
}

func (p *Provider) roleLastUsed(ctx context.Context, roleName string) *time.Time {
	out, err := p.client.GetRole(ctx, &iam.GetRoleInput{RoleName: awssdk.String(roleName)})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("role", roleName).Msg("failed to read role last-used")
		return nil
	}
	if out.Role == nil || out.Role.RoleLastUsed == nil {
		return nil
	}
	return out.Role.RoleLastUsed.LastUsedDate
}

func (p *Provider) userPolicies(ctx context.Context, userName string) ([]domain.PermissionDocument, error) {
	var docs []domain.PermissionDocument
	var marker *string
	for {
		out, err := p.client.ListAttachedUserPolicies(ctx, &iam.ListAttachedUserPoliciesInput{
			UserName: awssdk.String(userName),
			Marker:   marker,
		})
		if err != nil {
			return docs, fmt.Errorf("list attached policies for user %s: %w", userName, err)
		}
		for _, att := range out.AttachedPolicies {
			doc, err := p.managedPolicy(ctx, awssdk.ToString(att.PolicyArn), awssdk.ToString(att.PolicyName))
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("policy", awssdk.ToString(att.PolicyName)).Msg("skipping unreadable managed policy")
				continue
			}
			docs = append(docs, doc)
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}

	inline, err := p.userInlinePolicies(ctx, userName)
	docs = append(docs, inline...)
	return docs, err
}

func (p *Provider) userInlinePolicies(ctx context.Context, userName string) ([]domain.PermissionDocument, error) {
	var docs []domain.PermissionDocument
	var marker *string
	for {
		out, err := p.client.ListUserPolicies(ctx, &iam.ListUserPoliciesInput{
			UserName: awssdk.String(userName),
			Marker:   marker,
		})
		if err != nil {
			return docs, fmt.Errorf("list inline policies for user %s: %w", userName, err)
		}
		for _, name := range out.PolicyNames {
			pol, err := p.client.GetUserPolicy(ctx, &iam.GetUserPolicyInput{
				UserName:   awssdk.String(userName),
				PolicyName: awssdk.String(name),
			})
			if err != nil {
				return docs, fmt.Errorf("get inline policy %s for user %s: %w", name, userName, err)
			}
			doc, err := DecodePolicyDocument(name, awssdk.ToString(pol.PolicyDocument))
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("policy", name).Msg("skipping undecodable inline policy")
				continue
			}
			docs = append(docs, doc)
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}
	return docs, nil
}

func (p *Provider) rolePolicies(ctx context.Context, roleName string) ([]domain.PermissionDocument, error) {
	var docs []domain.PermissionDocument
	var marker *string
	for {
		out, err := p.client.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
			RoleName: awssdk.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return docs, fmt.Errorf("list attached policies for role %s: %w", roleName, err)
		}
		for _, att := range out.AttachedPolicies {
			doc, err := p.managedPolicy(ctx, awssdk.ToString(att.PolicyArn), awssdk.ToString(att.PolicyName))
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("policy", awssdk.ToString(att.PolicyName)).Msg("skipping unreadable managed policy")
				continue
			}
			docs = append(docs, doc)
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}

	inline, err := p.roleInlinePolicies(ctx, roleName)
	docs = append(docs, inline...)
	return docs, err
}

func (p *Provider) roleInlinePolicies(ctx context.Context, roleName string) ([]domain.PermissionDocument, error) {
	var docs []domain.PermissionDocument
	var marker *string
	for {
		out, err := p.client.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{
			RoleName: awssdk.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return docs, fmt.Errorf("list inline policies for role %s: %w", roleName, err)
		}
		for _, name := range out.PolicyNames {
			pol, err := p.client.GetRolePolicy(ctx, &iam.GetRolePolicyInput{
				RoleName:   awssdk.String(roleName),
				PolicyName: awssdk.String(name),
			})
			if err != nil {
				return docs, fmt.Errorf("get inline policy %s for role %s: %w", name, roleName, err)
			}
			doc, err := DecodePolicyDocument(name, awssdk.ToString(pol.PolicyDocument))
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("policy", name).Msg("skipping undecodable inline policy")
				continue
			}
			docs = append(docs, doc)
		}
		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}
	return docs, nil
}

// managedPolicy resolves a managed policy's default version document.
func (p *Provider) managedPolicy(ctx context.Context, arn, name string) (domain.PermissionDocument, error) {
	if doc, ok := p.managed[arn]; ok {
		return doc, nil
	}

	pol, err := p.client.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: awssdk.String(arn)})
	if err != nil {
		return domain.PermissionDocument{}, fmt.Errorf("get policy %s: %w", arn, err)
	}
	ver, err := p.client.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: awssdk.String(arn),
		VersionId: pol.Policy.DefaultVersionId,
	})
	if err != nil {
		return domain.PermissionDocument{}, fmt.Errorf("get policy version %s: %w", arn, err)
	}

	doc, err := DecodePolicyDocument(name, awssdk.ToString(ver.PolicyVersion.Document))
	if err != nil {
		return domain.PermissionDocument{}, err
	}
	p.managed[arn] = doc
	return doc, nil
}
