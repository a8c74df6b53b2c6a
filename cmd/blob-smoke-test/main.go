package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/wellnest-io/wellnest-backend/internal/azure"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Get credentials from environment
	storageAccountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	storageAccountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
	containerName := os.Getenv("AZURE_STORAGE_REPORT_CONTAINER")
	if containerName == "" {
		containerName = "adherence-reports"
	}

	if storageAccountName == "" || storageAccountKey == "" {
		logger.Fatal("Missing Azure Storage credentials. Set AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY")
	}

	ctx := context.Background()

	logger.Info("=== Testing Azure Blob Storage Client ===",
		zap.String("container", containerName),
	)
	if err := testBlobStorageClient(ctx, storageAccountName, storageAccountKey, containerName, logger); err != nil {
		logger.Fatal("Blob storage client test failed", zap.Error(err))
	}
	logger.Info("✅ Blob storage client test passed")
}

func testBlobStorageClient(ctx context.Context, accountName, accountKey, containerName string, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClient(accountName, accountKey, containerName, logger)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}

	testPDFData := []byte("%PDF-1.4\nTest PDF content")
	testFilename := fmt.Sprintf("smoke-test-%d.pdf", time.Now().Unix())

	logger.Info("Testing PDF upload", zap.String("filename", testFilename))

	blobName, err := client.UploadPDF(ctx, testFilename, testPDFData)
	if err != nil {
		return fmt.Errorf("PDF upload failed: %w", err)
	}

	logger.Info("PDF uploaded successfully", zap.String("blob_name", blobName))

	logger.Info("Testing PDF download", zap.String("blob_name", blobName))

	downloadedPDF, err := client.DownloadPDF(ctx, blobName)
	if err != nil {
		return fmt.Errorf("PDF download failed: %w", err)
	}

	if !bytes.Equal(downloadedPDF, testPDFData) {
		return fmt.Errorf("downloaded PDF doesn't match uploaded PDF")
	}

	logger.Info("PDF downloaded and verified successfully",
		zap.Int("size_bytes", len(downloadedPDF)),
	)

	return nil
}
