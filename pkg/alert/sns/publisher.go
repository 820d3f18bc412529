package sns

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// PublishAPI is the slice of the SNS client the publisher uses.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher sends one summary notification per review run.
type Publisher struct {
	client    PublishAPI
	topicARN  string
	reportURL string
}

// NewPublisher builds the SNS alert sink. reportURL may be empty when no
// uploaded report exists to point at.
func NewPublisher(client PublishAPI, topicARN, reportURL string) *Publisher {
	return &Publisher{
		client:    client,
		topicARN:  topicARN,
		reportURL: reportURL,
	}
}

func (p *Publisher) Notify(ctx context.Context, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	subject, message := composeNotification(findings, p.reportURL)
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(p.topicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}

func composeNotification(findings []domain.Finding, reportURL string) (string, string) {
	counts := make(map[domain.RiskLevel]int)
	for _, f := range findings {
		counts[f.Level]++
	}

	subject := fmt.Sprintf("IAM Access Review Summary: %d High / %d Critical",
		counts[domain.RiskLevelHigh], counts[domain.RiskLevelCritical])

	var b strings.Builder
	fmt.Fprintf(&b, "Access review flagged %d identities.\n", len(findings))

	levels := []domain.RiskLevel{
		domain.RiskLevelCritical,
		domain.RiskLevelHigh,
		domain.RiskLevelMedium,
		domain.RiskLevelLow,
	}
	for _, level := range levels {
		if counts[level] == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", strings.ToUpper(level.String()))
		for _, f := range findings {
			if f.Level != level {
				continue
			}
			fmt.Fprintf(&b, "- %s (%s, %s): score %d", displayName(f), f.IdentityType, f.Platform, f.Score)
			if top, ok := f.TopFactor(); ok {
				fmt.Fprintf(&b, ", %s: %s", top.Factor, top.Evidence)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRecommended actions:\n")
	b.WriteString("- Disable or remove identities with no recent activity.\n")
	b.WriteString("- Replace administrative wildcard policies with scoped grants.\n")
	b.WriteString("- Narrow broad statements to the resources actually used.\n")

	if reportURL != "" {
		fmt.Fprintf(&b, "\nFull report: %s\n", reportURL)
	}

	return subject, b.String()
}

func displayName(f domain.Finding) string {
	if f.IdentityName != "" {
		return f.IdentityName
	}
	return f.IdentityID
}
