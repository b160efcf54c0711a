package quiz_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/satsquest/internal/domain"
	"github.com/victornm/satsquest/internal/errors"
	"github.com/victornm/satsquest/internal/quiz"
)

const generatedList = `[
	{"question_text":"Who created Bitcoin?","options":["Satoshi Nakamoto","Hal Finney","Nick Szabo","Adam Back"],"correct_answer":"Satoshi Nakamoto"},
	{"question_text":"Smallest unit?","options":["Satoshi","Finney","Wei","Gwei"],"correct_answer":"Satoshi"},
	{"question_text":"Broken","options":["a","b","c"],"correct_answer":"a"}
]`

func TestService_GenerateQuiz(t *testing.T) {
	tests := map[string]struct {
		oracle  *fakeOracle
		req     quiz.GenerateQuizRequest
		assert  func(t *testing.T, z *domain.Quiz)
		wantErr errors.Code
	}{
		"valid questions are returned, malformed ones dropped": {
			oracle: &fakeOracle{text: generatedList},
			req:    quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 5},
			assert: func(t *testing.T, z *domain.Quiz) {
				assert.True(t, strings.HasPrefix(z.ID, "quiz_"))
				assert.Equal(t, "Bitcoin", z.Topic)
				require.Len(t, z.Questions, 2)
				assert.Equal(t, "Who created Bitcoin?", z.Questions[0].Text)
			},
		},
		"result is cut to the requested count": {
			oracle: &fakeOracle{text: generatedList},
			req:    quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 1},
			assert: func(t *testing.T, z *domain.Quiz) {
				assert.Len(t, z.Questions, 1)
			},
		},
		"fenced output is accepted": {
			oracle: &fakeOracle{text: "```JSON\n" + generatedList + "\n```"},
			req:    quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 5},
			assert: func(t *testing.T, z *domain.Quiz) {
				assert.Len(t, z.Questions, 2)
			},
		},
		"missing topic": {
			oracle:  &fakeOracle{text: generatedList},
			req:     quiz.GenerateQuizRequest{Count: 5},
			wantErr: errors.CodeInvalidArgument,
		},
		"count above the limit": {
			oracle:  &fakeOracle{text: generatedList},
			req:     quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: quiz.MaxGenerateCount + 1},
			wantErr: errors.CodeInvalidArgument,
		},
		"zero count": {
			oracle:  &fakeOracle{text: generatedList},
			req:     quiz.GenerateQuizRequest{Topic: "Bitcoin"},
			wantErr: errors.CodeInvalidArgument,
		},
		"oracle failure": {
			oracle:  &fakeOracle{err: stderrors.New("down")},
			req:     quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 5},
			wantErr: errors.CodeUnavailable,
		},
		"unparsable output": {
			oracle:  &fakeOracle{text: "no quiz today"},
			req:     quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 5},
			wantErr: errors.CodeInternal,
		},
		"every question malformed": {
			oracle:  &fakeOracle{text: `[{"question_text":"x","options":["a"],"correct_answer":"a"}]`},
			req:     quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 5},
			wantErr: errors.CodeInternal,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := makeService(t, withOracle(tt.oracle))

			z, err := s.GenerateQuiz(context.Background(), tt.req)
			if tt.wantErr != 0 {
				require.Error(t, err)
				assert.Nil(t, z)
				assert.Equal(t, tt.wantErr, errors.Convert(err).Code)
				return
			}

			require.NoError(t, err)
			assertPlayable(t, z)
			tt.assert(t, z)
		})
	}
}

func TestService_GenerateQuiz_BypassesCache(t *testing.T) {
	o := &fakeOracle{text: generatedList}
	s := makeService(t, withOracle(o))

	_, err := s.GenerateQuiz(context.Background(), quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 3})
	require.NoError(t, err)
	_, err = s.GenerateQuiz(context.Background(), quiz.GenerateQuizRequest{Topic: "Bitcoin", Count: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, o.Calls())
	assert.Contains(t, o.LastPrompt(), `"question_text"`)
	assert.Contains(t, o.LastPrompt(), "3 questions")
}
