package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/yuya-takeyama/strict-vault-sync/internal/config"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/report"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/s3client"
)

// publishReport writes r to the JSON file and S3 prefix configured, if any.
func publishReport(ctx context.Context, cfg *config.Config, r report.Report, name string) error {
	if cfg.Report.JSONFile == "" && cfg.Report.S3URI == "" {
		return nil
	}

	if cfg.Report.JSONFile != "" {
		if err := report.WriteFile(cfg.Report.JSONFile, r); err != nil {
			return fmt.Errorf("failed to write report JSON: %w", err)
		}
	}

	if cfg.Report.S3URI == "" {
		return nil
	}

	data, err := r.Marshal()
	if err != nil {
		return err
	}

	// Build config options
	var configOpts []func(*awsconfig.LoadOptions) error
	if cfg.Report.AWSProfile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(cfg.Report.AWSProfile))
	}
	if cfg.Report.AWSRegion != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(cfg.Report.AWSRegion))
	}

	// The job may have been interrupted; the report still has to go out.
	ctx = context.WithoutCancel(ctx)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	publisher := s3client.NewPublisher(s3client.NewAWSClient(awsCfg))
	uri, err := publisher.Publish(ctx, cfg.Report.S3URI, name, data, map[string]string{
		"status": r.Status,
	})
	if err != nil {
		return err
	}
	if !cfg.Logging.Quiet {
		fmt.Printf("Report: %s\n", uri)
	}
	return nil
}
